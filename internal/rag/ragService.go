package rag

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/akolanti/landbot/internal/adapter/utils"
	"github.com/akolanti/landbot/internal/config"
	"github.com/akolanti/landbot/internal/domain/chatModel"
	"github.com/akolanti/landbot/internal/domain/commonModels"
	"github.com/akolanti/landbot/internal/domain/jobModel"
	"github.com/akolanti/landbot/internal/media"
	"github.com/akolanti/landbot/internal/metrics"
	"github.com/akolanti/landbot/internal/rag/embedding"
	"github.com/akolanti/landbot/internal/rag/ingest"
	"github.com/akolanti/landbot/internal/rag/llm"
	"github.com/akolanti/landbot/internal/rag/vectorDB"
	"github.com/akolanti/landbot/pkg/logger_i"
)

// Service is what the chatbot, the ingest workers and the MCP tools call. The
// vector store, embedder and LLM stay behind it.
type Service interface {
	// Answer streams cleaned deltas to onChunk, or generates in one call when onChunk is nil.
	Answer(ctx context.Context, query Query, onChunk func(string) error) (Answer, error)
	Search(ctx context.Context, query string, limit int) ([]commonModels.Passage, error)
	IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job
	CheckHealth(ctx context.Context, deep bool) []Check
}

type Query struct {
	Question    string
	History     []chatModel.HistoryEntry
	Attachments []media.Attachment
}

type Answer struct {
	Text        string
	Passages    []commonModels.Passage
	ContextUsed int
	Sources     []string
	Cached      bool
	Fallback    bool
}

type Check struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

const (
	CheckOK       = "ok"
	CheckDegraded = "degraded"
	CheckDown     = "down"
)

var ErrNoVectorStore = errors.New("vector store is not available")

type service struct {
	vectorDB    vectorDB.DataProcessor
	llmProvider llm.Provider
	embedder    embedding.Embedder
	logger      *logger_i.Logger
}

// NewService accepts a nil vector store or embedder; answers then use the default knowledge.
func NewService(vector vectorDB.DataProcessor, llm llm.Provider, em embedding.Embedder) Service {
	return &service{
		vectorDB:    vector,
		llmProvider: llm,
		embedder:    em,
		logger:      logger_i.NewLogger("RAG Service"),
	}
}

func (s *service) Answer(ctx context.Context, query Query, onChunk func(string) error) (Answer, error) {
	log := s.logger.FromContext(ctx)
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("rag_answer", time.Since(start)) }()

	processContext, cancel := context.WithTimeout(ctx, config.RAGTimeout)
	defer cancel()

	vector := s.executeEmbeddingStep(processContext, log, query.Question)
	cacheable := vector != nil && len(query.History) == 0 && len(query.Attachments) == 0

	if cacheable {
		if cached, found := s.executeCacheCheckStep(processContext, log, vector); found {
			return s.replayCached(cached, onChunk)
		}
	}

	passages, fallback := s.executeVectorSearchStep(processContext, log, vector, config.SearchTopK)
	result := Answer{
		Passages:    passages,
		ContextUsed: len(passages),
		Sources:     sourcesOf(passages),
		Fallback:    fallback,
	}

	prompt := llm.Prompt{
		Question:    query.Question,
		Passages:    contextTexts(passages, config.ContextPassages),
		History:     query.History,
		Attachments: query.Attachments,
	}
	raw, err := s.executeLLMStep(processContext, log, prompt, onChunk)
	if err != nil {
		return result, err
	}
	result.Text = CleanResponse(raw)
	if result.Text == "" {
		return result, errors.New("answer was empty after cleaning")
	}

	if cacheable && !fallback {
		s.saveToCache(ctx, vector, query.Question, result.Text)
	}
	return result, nil
}

// Search runs a knowledge lookup without generation.
func (s *service) Search(ctx context.Context, query string, limit int) ([]commonModels.Passage, error) {
	if limit <= 0 || limit > 4*config.SearchTopK {
		limit = config.SearchTopK
	}
	if s.vectorDB == nil || s.embedder == nil {
		return nil, ErrNoVectorStore
	}
	vector, err := s.embedder.GetEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.vectorDB.Search(ctx, vector, uint64(limit))
}

func (s *service) IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("document_ingestion", time.Since(start)) }()
	if s.vectorDB == nil || s.embedder == nil {
		return s.jobError(ctx, job, ErrNoVectorStore, "INGESTION_UNAVAILABLE", true)
	}
	j := ingest.ProcessDocumentIngestion(ctx, job, s.embedder, s.vectorDB)
	if j.Status != jobModel.JobStatusComplete {
		reason := j.Error.Message
		if reason == "" {
			reason = "ingest document failed"
		}
		return s.jobError(ctx, j, errors.New(reason), "INGESTION_FAILURE", false)
	}
	return j
}

func (s *service) CheckHealth(ctx context.Context, deep bool) []Check {
	checks := make([]Check, 0, 3)

	switch {
	case s.vectorDB == nil:
		checks = append(checks, Check{Name: "vector_db", Status: CheckDegraded, Detail: "default knowledge only"})
	default:
		if err := s.vectorDB.Ping(ctx); err != nil {
			checks = append(checks, Check{Name: "vector_db", Status: CheckDegraded, Detail: err.Error()})
		} else {
			checks = append(checks, Check{Name: "vector_db", Status: CheckOK})
		}
	}

	if s.embedder == nil {
		checks = append(checks, Check{Name: "embedding", Status: CheckDegraded, Detail: "not configured"})
	} else {
		checks = append(checks, Check{Name: "embedding", Status: CheckOK, Detail: s.embedder.ModelName()})
	}

	if s.llmProvider == nil {
		return append(checks, Check{Name: "llm", Status: CheckDown, Detail: "not configured"})
	}
	llmCheck := Check{Name: "llm", Status: CheckOK, Detail: s.llmProvider.Name()}
	if deep {
		if _, err := s.llmProvider.Generate(ctx, llm.Prompt{Question: "Test de fonctionnement"}); err != nil {
			llmCheck.Status = CheckDown
			llmCheck.Detail = err.Error()
		}
	}
	return append(checks, llmCheck)
}

// replayCached streams a cached answer word by word so clients see the same event shape.
func (s *service) replayCached(cached string, onChunk func(string) error) (Answer, error) {
	text := CleanResponse(cached)
	if onChunk != nil {
		for _, word := range strings.Fields(text) {
			if err := onChunk(word + " "); err != nil {
				return Answer{}, err
			}
		}
	}
	return Answer{Text: text, Cached: true}, nil
}

func (s *service) saveToCache(ctx context.Context, vector []float32, question string, answer string) {
	cacheCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	go func() {
		defer cancel()
		if err := s.vectorDB.SaveToCache(cacheCtx, utils.GetNewUUID(), vector, question, answer); err != nil {
			s.logger.FromContext(cacheCtx).Warn("Failed to save answer to semantic cache", "error", err)
		}
	}()
}
