package googleEmbedding

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/akolanti/landbot/internal/config"
	"github.com/akolanti/landbot/internal/rag/embedding"
	"github.com/akolanti/landbot/pkg/logger_i"
	"google.golang.org/genai"
)

var logger = logger_i.NewLogger("google_embedding")
var once sync.Once
var embeddingClient *client
var dimension int32 = config.EmbeddingOutputDimensionality

const (
	taskQuery    = "RETRIEVAL_QUERY"
	taskDocument = "RETRIEVAL_DOCUMENT"
)

type client struct {
	genAi *genai.Client
	model string
}

func newGoogleEmbedder(ctx context.Context, modelName string, apikey string, httpClient *http.Client) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apikey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		logger.Error("Error creating Google Embedding client", "error", err)
		return
	}
	embeddingClient = &client{
		genAi: c,
		model: modelName,
	}
	logger.Info("Google Embedding client created", "model", modelName)
}

// GetGoogleEmbeddingClient returns nil when the client cannot be built.
func GetGoogleEmbeddingClient(ctx context.Context, modelName string, apikey string, httpClient *http.Client) embedding.Embedder {
	once.Do(func() {
		if modelName == "" {
			modelName = config.GoogleEmbeddingModel
		}
		newGoogleEmbedder(ctx, modelName, apikey, httpClient)
	})

	if embeddingClient == nil {
		return nil
	}
	return &client{genAi: embeddingClient.genAi, model: embeddingClient.model}
}

func (c *client) ModelName() string {
	return c.model
}

func (c *client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	log := logger.FromContext(ctx)

	result, err := withRetry(ctx, log, func() (*genai.EmbedContentResponse, error) {
		return c.doCall(ctx, genai.Text(query), taskQuery)
	})
	if err != nil {
		log.Error("Error getting query embedding from Google", "error", err)
		return nil, err
	}
	if len(result.Embeddings) == 0 || result.Embeddings[0] == nil {
		return nil, errors.New("empty embedding response")
	}
	return result.Embeddings[0].Values, nil
}

func (c *client) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	log := logger.FromContext(ctx).With("chunks", len(chunks))

	res, err := withRetry(ctx, log, func() (*genai.EmbedContentResponse, error) {
		return c.doCall(ctx, getContent(chunks), taskDocument)
	})
	if err != nil {
		log.Error("Error getting batch embeddings from Google", "error", err)
		return nil, err
	}

	embeddingResults := make([][]float32, len(chunks))
	for i, r := range res.Embeddings {
		if i >= len(embeddingResults) {
			break
		}
		if r != nil {
			embeddingResults[i] = r.Values
		}
	}
	return embeddingResults, nil
}

func (c *client) doCall(ctx context.Context, content []*genai.Content, taskType string) (*genai.EmbedContentResponse, error) {
	return c.genAi.Models.EmbedContent(ctx, c.model, content, &genai.EmbedContentConfig{
		OutputDimensionality: &dimension,
		TaskType:             taskType,
	})
}

func getContent(chunks []string) []*genai.Content {
	contentsToSend := make([]*genai.Content, 0, len(chunks))
	for _, chunk := range chunks {
		contentsToSend = append(contentsToSend, genai.NewContentFromText(chunk, genai.RoleUser))
	}
	return contentsToSend
}
