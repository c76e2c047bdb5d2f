package rag_test

import (
	"context"

	"github.com/akolanti/landbot/internal/domain/commonModels"
	"github.com/akolanti/landbot/internal/rag/llm"
)

// MockVectorDB implements vectorDB.DataProcessor
type MockVectorDB struct {
	OnSearch           func(ctx context.Context, vectorVal []float32, limit uint64) ([]commonModels.Passage, error)
	OnGetCachedAnswer  func(ctx context.Context, queryVector []float32) (string, bool, error)
	OnSaveToCache      func(ctx context.Context, id string, vector []float32, question string, answer string) error
	OnCreateCollection func(ctx context.Context, name string) error
	OnUpsertBatch      func(ctx context.Context, name string, chunks []commonModels.DocChunk, vectors [][]float32) error
	OnPing             func(ctx context.Context) error
}

func (m *MockVectorDB) Search(ctx context.Context, v []float32, limit uint64) ([]commonModels.Passage, error) {
	if m.OnSearch != nil {
		return m.OnSearch(ctx, v, limit)
	}
	return []commonModels.Passage{{Content: "default context", DocName: "code-foncier.pdf"}}, nil
}

func (m *MockVectorDB) GetCachedAnswer(ctx context.Context, v []float32) (string, bool, error) {
	if m.OnGetCachedAnswer != nil {
		return m.OnGetCachedAnswer(ctx, v)
	}
	return "", false, nil
}

func (m *MockVectorDB) SaveToCache(ctx context.Context, id string, v []float32, q string, a string) error {
	if m.OnSaveToCache != nil {
		return m.OnSaveToCache(ctx, id, v, q, a)
	}
	return nil
}

func (m *MockVectorDB) CreateCollection(ctx context.Context, name string) error {
	if m.OnCreateCollection != nil {
		return m.OnCreateCollection(ctx, name)
	}
	return nil
}

func (m *MockVectorDB) UpsertBatch(ctx context.Context, name string, chunks []commonModels.DocChunk, vectors [][]float32) error {
	if m.OnUpsertBatch != nil {
		return m.OnUpsertBatch(ctx, name, chunks, vectors)
	}
	return nil
}

func (m *MockVectorDB) Ping(ctx context.Context) error {
	if m.OnPing != nil {
		return m.OnPing(ctx)
	}
	return nil
}

type MockEmbedder struct {
	OnGetEmbedding   func(ctx context.Context, text string) ([]float32, error)
	OnBatchEmbedding func(ctx context.Context, chunks []string) ([][]float32, error)
}

func (m *MockEmbedder) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	if m.OnBatchEmbedding != nil {
		return m.OnBatchEmbedding(ctx, chunks)
	}
	return make([][]float32, len(chunks)), nil
}

func (m *MockEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	if m.OnGetEmbedding != nil {
		return m.OnGetEmbedding(ctx, query)
	}
	return []float32{0.1}, nil
}

func (m *MockEmbedder) ModelName() string { return "mock-embedding" }

// MockLLM implements llm.Provider. GenerateStream replays Chunks unless OnGenerateStream is set.
type MockLLM struct {
	Chunks           []string
	OnGenerate       func(ctx context.Context, p llm.Prompt) (string, error)
	OnGenerateStream func(ctx context.Context, p llm.Prompt, onChunk func(string) error) (string, error)
	LastPrompt       llm.Prompt
}

func (m *MockLLM) Generate(ctx context.Context, p llm.Prompt) (string, error) {
	m.LastPrompt = p
	if m.OnGenerate != nil {
		return m.OnGenerate(ctx, p)
	}
	return "mocked llm response", nil
}

func (m *MockLLM) GenerateStream(ctx context.Context, p llm.Prompt, onChunk func(string) error) (string, error) {
	m.LastPrompt = p
	if m.OnGenerateStream != nil {
		return m.OnGenerateStream(ctx, p, onChunk)
	}
	full := ""
	for _, c := range m.Chunks {
		full += c
		if err := onChunk(c); err != nil {
			return full, err
		}
	}
	return full, nil
}

func (m *MockLLM) Name() string { return "mock" }
