package rag

import (
	"context"
	"net/http"
	"time"

	"github.com/akolanti/landbot/internal/config"
	"github.com/akolanti/landbot/internal/domain/commonModels"
	"github.com/akolanti/landbot/internal/domain/jobModel"
	"github.com/akolanti/landbot/internal/metrics"
	"github.com/akolanti/landbot/internal/rag/llm"
	"github.com/akolanti/landbot/pkg/logger_i"
)

func (s *service) jobError(ctx context.Context, job jobModel.Job, err error, message string, canRetry bool) jobModel.Job {
	s.logger.FromContext(ctx).Error(message, "jobId", job.Id, "error", err)

	job.Error = jobModel.JobError{
		Code:    http.StatusInternalServerError,
		Message: err.Error(),
		Retry:   canRetry,
	}
	job.Status = jobModel.JobStatusError
	job.CurrentStep = jobModel.Error
	return job
}

// executeEmbeddingStep returns nil when there is no embedder or the call failed.
func (s *service) executeEmbeddingStep(ctx context.Context, log *logger_i.Logger, question string) []float32 {
	if s.embedder == nil {
		return nil
	}
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("embedding", time.Since(start)) }()

	vector, err := s.embedder.GetEmbedding(ctx, question)
	if err != nil {
		log.Warn("Embedding failed, falling back to default knowledge", "error", err)
		return nil
	}
	return vector
}

func (s *service) executeCacheCheckStep(ctx context.Context, log *logger_i.Logger, vector []float32) (string, bool) {
	if s.vectorDB == nil {
		return "", false
	}
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("cache_lookup", time.Since(start)) }()

	ans, found, err := s.vectorDB.GetCachedAnswer(ctx, vector)
	if err != nil {
		log.Debug("Semantic cache unavailable", "error", err)
		return "", false
	}
	metrics.CountCacheLookup(found)
	return ans, found
}

// executeVectorSearchStep never fails: without hits it serves the default knowledge and reports fallback.
func (s *service) executeVectorSearchStep(ctx context.Context, log *logger_i.Logger, vector []float32, limit int) ([]commonModels.Passage, bool) {
	if vector == nil || s.vectorDB == nil {
		return defaultPassages(limit), true
	}
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("vector_search", time.Since(start)) }()

	passages, err := s.vectorDB.Search(ctx, vector, uint64(limit))
	if err != nil {
		log.Warn("Vector search failed, falling back to default knowledge", "error", err)
		return defaultPassages(limit), true
	}
	if len(passages) == 0 {
		log.Debug("No knowledge hits, falling back to default knowledge")
		return defaultPassages(limit), true
	}
	return passages, false
}

func (s *service) executeLLMStep(ctx context.Context, log *logger_i.Logger, prompt llm.Prompt, onChunk func(string) error) (string, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm_generation", time.Since(start)) }()

	if onChunk == nil {
		return s.llmProvider.Generate(ctx, prompt)
	}
	raw, err := s.llmProvider.GenerateStream(ctx, prompt, func(delta string) error {
		cleaned := CleanChunk(delta)
		if cleaned == "" {
			return nil
		}
		return onChunk(cleaned)
	})
	if err != nil {
		log.Error("LLM generation failed", "error", err, "provider", s.llmProvider.Name())
	}
	return raw, err
}

func defaultPassages(limit int) []commonModels.Passage {
	if limit > len(config.DefaultKnowledge) {
		limit = len(config.DefaultKnowledge)
	}
	passages := make([]commonModels.Passage, 0, limit)
	for _, text := range config.DefaultKnowledge[:limit] {
		passages = append(passages, commonModels.Passage{Content: text, DocName: config.DefaultKnowledgeDocName})
	}
	return passages
}

func contextTexts(passages []commonModels.Passage, n int) []string {
	if len(passages) < n {
		n = len(passages)
	}
	texts := make([]string, 0, n)
	for _, p := range passages[:n] {
		texts = append(texts, p.Content)
	}
	return texts
}

func sourcesOf(passages []commonModels.Passage) []string {
	seen := make(map[string]bool, len(passages))
	sources := make([]string, 0, len(passages))
	for _, p := range passages {
		if p.DocName == "" || seen[p.DocName] {
			continue
		}
		seen[p.DocName] = true
		sources = append(sources, p.DocName)
	}
	return sources
}
