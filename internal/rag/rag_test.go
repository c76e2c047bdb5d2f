package rag_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/akolanti/landbot/internal/config"
	"github.com/akolanti/landbot/internal/domain/chatModel"
	"github.com/akolanti/landbot/internal/domain/commonModels"
	"github.com/akolanti/landbot/internal/domain/jobModel"
	"github.com/akolanti/landbot/internal/rag"
	"github.com/akolanti/landbot/internal/rag/llm"
	"github.com/stretchr/testify/require"
)

func collect(chunks *[]string) func(string) error {
	return func(s string) error {
		*chunks = append(*chunks, s)
		return nil
	}
}

func TestAnswer_StreamsCleanedChunks(t *testing.T) {
	saved := make(chan string, 1)
	v := &MockVectorDB{
		OnSaveToCache: func(ctx context.Context, id string, vec []float32, q string, a string) error {
			saved <- a
			return nil
		},
	}
	l := &MockLLM{Chunks: []string{"Le **titre**", " foncier\n", "est délivré 😀 par l'ANDF."}}
	svc := rag.NewService(v, l, &MockEmbedder{})

	var chunks []string
	ans, err := svc.Answer(context.Background(), rag.Query{Question: "Qui délivre le titre ?"}, collect(&chunks))
	require.NoError(t, err)

	require.Equal(t, []string{"Le titre", " foncier ", "est délivré  par l'ANDF."}, chunks)
	require.Equal(t, "Le titre foncier est délivré par l'ANDF.", ans.Text)
	require.False(t, ans.Cached)
	require.False(t, ans.Fallback)
	require.Equal(t, 1, ans.ContextUsed)
	require.Equal(t, []string{"code-foncier.pdf"}, ans.Sources)

	select {
	case a := <-saved:
		require.Equal(t, ans.Text, a)
	case <-time.After(time.Second):
		t.Fatal("answer was not saved to the semantic cache")
	}
}

func TestAnswer_CacheHitReplaysWords(t *testing.T) {
	v := &MockVectorDB{
		OnGetCachedAnswer: func(ctx context.Context, q []float32) (string, bool, error) {
			return "Réponse en cache.", true, nil
		},
	}
	l := &MockLLM{OnGenerateStream: func(ctx context.Context, p llm.Prompt, onChunk func(string) error) (string, error) {
		t.Fatal("LLM must not be called on a cache hit")
		return "", nil
	}}
	svc := rag.NewService(v, l, &MockEmbedder{})

	var chunks []string
	ans, err := svc.Answer(context.Background(), rag.Query{Question: "Q"}, collect(&chunks))
	require.NoError(t, err)
	require.True(t, ans.Cached)
	require.Equal(t, "Réponse en cache.", ans.Text)
	require.Equal(t, []string{"Réponse ", "en ", "cache. "}, chunks)
}

func TestAnswer_HistorySkipsCache(t *testing.T) {
	var cacheLookups, cacheSaves int
	var mu sync.Mutex
	v := &MockVectorDB{
		OnGetCachedAnswer: func(ctx context.Context, q []float32) (string, bool, error) {
			cacheLookups++
			return "stale", true, nil
		},
		OnSaveToCache: func(ctx context.Context, id string, vec []float32, q string, a string) error {
			mu.Lock()
			defer mu.Unlock()
			cacheSaves++
			return nil
		},
	}
	l := &MockLLM{Chunks: []string{"Suite de la conversation."}}
	svc := rag.NewService(v, l, &MockEmbedder{})

	history := []chatModel.HistoryEntry{{Role: chatModel.RoleUser, Content: "Bonjour"}}
	ans, err := svc.Answer(context.Background(), rag.Query{Question: "Et ensuite ?", History: history}, func(string) error { return nil })
	require.NoError(t, err)
	require.Equal(t, "Suite de la conversation.", ans.Text)
	require.Zero(t, cacheLookups)
	require.Equal(t, history, l.LastPrompt.History)

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Zero(t, cacheSaves)
}

func TestAnswer_FallsBackToDefaultKnowledge(t *testing.T) {
	tests := []struct {
		name     string
		embedder *MockEmbedder
		vector   *MockVectorDB
	}{
		{
			name: "vector search failure",
			vector: &MockVectorDB{OnSearch: func(ctx context.Context, v []float32, limit uint64) ([]commonModels.Passage, error) {
				return nil, errors.New("db timeout")
			}},
			embedder: &MockEmbedder{},
		},
		{
			name: "no hits",
			vector: &MockVectorDB{OnSearch: func(ctx context.Context, v []float32, limit uint64) ([]commonModels.Passage, error) {
				return nil, nil
			}},
			embedder: &MockEmbedder{},
		},
		{
			name:   "embedding failure",
			vector: &MockVectorDB{},
			embedder: &MockEmbedder{OnGetEmbedding: func(ctx context.Context, text string) ([]float32, error) {
				return nil, errors.New("api limit")
			}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &MockLLM{Chunks: []string{"ok"}}
			svc := rag.NewService(tt.vector, l, tt.embedder)

			ans, err := svc.Answer(context.Background(), rag.Query{Question: "Q"}, func(string) error { return nil })
			require.NoError(t, err)
			require.True(t, ans.Fallback)
			require.Equal(t, config.SearchTopK, ans.ContextUsed)
			require.Equal(t, []string{config.DefaultKnowledgeDocName}, ans.Sources)
			require.Equal(t, config.DefaultKnowledge[:config.ContextPassages], l.LastPrompt.Passages)
		})
	}
}

func TestAnswer_NoVectorStore(t *testing.T) {
	l := &MockLLM{}
	svc := rag.NewService(nil, l, nil)

	ans, err := svc.Answer(context.Background(), rag.Query{Question: "Q"}, nil)
	require.NoError(t, err)
	require.Equal(t, "mocked llm response", ans.Text)
	require.True(t, ans.Fallback)
}

func TestAnswer_LLMFailure(t *testing.T) {
	l := &MockLLM{OnGenerateStream: func(ctx context.Context, p llm.Prompt, onChunk func(string) error) (string, error) {
		_ = onChunk("partial")
		return "partial", errors.New("provider down")
	}}
	svc := rag.NewService(&MockVectorDB{}, l, &MockEmbedder{})

	var chunks []string
	_, err := svc.Answer(context.Background(), rag.Query{Question: "Q"}, collect(&chunks))
	require.EqualError(t, err, "provider down")
	require.Equal(t, []string{"partial"}, chunks)
}

func TestAnswer_ChunkErrorStopsGeneration(t *testing.T) {
	gone := errors.New("client disconnected")
	l := &MockLLM{Chunks: []string{"a", "b", "c"}}
	svc := rag.NewService(&MockVectorDB{}, l, &MockEmbedder{})

	calls := 0
	_, err := svc.Answer(context.Background(), rag.Query{Question: "Q"}, func(string) error {
		calls++
		return gone
	})
	require.ErrorIs(t, err, gone)
	require.Equal(t, 1, calls)
}

func TestSearch(t *testing.T) {
	var gotLimit uint64
	v := &MockVectorDB{OnSearch: func(ctx context.Context, vec []float32, limit uint64) ([]commonModels.Passage, error) {
		gotLimit = limit
		return []commonModels.Passage{{Content: "x"}}, nil
	}}
	svc := rag.NewService(v, &MockLLM{}, &MockEmbedder{})

	res, err := svc.Search(context.Background(), "titre", 3)
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.Equal(t, uint64(3), gotLimit)

	_, err = svc.Search(context.Background(), "titre", 0)
	require.NoError(t, err)
	require.Equal(t, uint64(config.SearchTopK), gotLimit)

	_, err = rag.NewService(nil, &MockLLM{}, nil).Search(context.Background(), "titre", 3)
	require.ErrorIs(t, err, rag.ErrNoVectorStore)
}

func TestIngestDocument(t *testing.T) {
	t.Run("no vector store", func(t *testing.T) {
		svc := rag.NewService(nil, &MockLLM{}, nil)
		got := svc.IngestDocument(context.Background(), jobModel.Job{Id: "j"})
		require.Equal(t, jobModel.JobStatusError, got.Status)
		require.True(t, got.Error.Retry)
	})

	t.Run("defaults", func(t *testing.T) {
		emb := &MockEmbedder{OnBatchEmbedding: func(ctx context.Context, chunks []string) ([][]float32, error) {
			out := make([][]float32, len(chunks))
			for i := range out {
				out[i] = []float32{1}
			}
			return out, nil
		}}
		svc := rag.NewService(&MockVectorDB{}, &MockLLM{}, emb)
		got := svc.IngestDocument(context.Background(), jobModel.Job{
			Id:         "j",
			JobPayload: jobModel.JobPayload{IngestFileName: config.DefaultKnowledgeDocName},
		})
		require.Equal(t, jobModel.JobStatusComplete, got.Status)
		require.Equal(t, len(config.DefaultKnowledge), got.JobPayload.ChunksIngested)
	})
}

func TestCheckHealth(t *testing.T) {
	v := &MockVectorDB{OnPing: func(ctx context.Context) error { return errors.New("unreachable") }}
	l := &MockLLM{OnGenerate: func(ctx context.Context, p llm.Prompt) (string, error) {
		return "", errors.New("invalid api key")
	}}
	svc := rag.NewService(v, l, &MockEmbedder{})

	shallow := svc.CheckHealth(context.Background(), false)
	require.Len(t, shallow, 3)
	require.Equal(t, rag.CheckDegraded, shallow[0].Status)
	require.Equal(t, rag.CheckOK, shallow[2].Status)

	deep := svc.CheckHealth(context.Background(), true)
	require.Equal(t, rag.CheckDown, deep[2].Status)
	require.Equal(t, "invalid api key", deep[2].Detail)
}
