package gemini

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/akolanti/landbot/internal/config"
	"github.com/akolanti/landbot/internal/rag/llm"
	"github.com/akolanti/landbot/pkg/logger_i"
	"google.golang.org/genai"
)

type llmClient struct {
	client    *genai.Client
	modelName string
}

var logger = logger_i.NewLogger("llm_gemini")
var geminiClient *llmClient
var once sync.Once

// GetGeminiClient returns nil when the client cannot be built.
func GetGeminiClient(ctx context.Context, apikey string, modelName string, httpClient *http.Client) llm.Provider {
	once.Do(func() {
		if modelName == "" {
			modelName = config.GeminiModelName
		}
		newGeminiClient(ctx, apikey, modelName, httpClient)
	})

	if geminiClient == nil {
		return nil
	}
	return &llmClient{client: geminiClient.client, modelName: geminiClient.modelName}
}

func newGeminiClient(ctx context.Context, apikey string, modelName string, httpClient *http.Client) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apikey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		logger.Error("Error creating Gemini client", "error", err)
		return
	}
	geminiClient = &llmClient{client: c, modelName: modelName}
	logger.Info("Gemini client created", "model", modelName)
}

func (c *llmClient) Name() string {
	return "gemini:" + c.modelName
}

func (c *llmClient) Generate(ctx context.Context, prompt llm.Prompt) (string, error) {
	result, err := c.client.Models.GenerateContent(ctx, c.modelName, buildContents(prompt), generationConfig())
	if err != nil {
		logger.FromContext(ctx).Error("Gemini generation failed", "error", err)
		return "", err
	}
	text := result.Text()
	if text == "" {
		return "", errors.New("gemini returned an empty answer")
	}
	return text, nil
}

func (c *llmClient) GenerateStream(ctx context.Context, prompt llm.Prompt, onChunk func(string) error) (string, error) {
	log := logger.FromContext(ctx)
	var full strings.Builder

	for resp, err := range c.client.Models.GenerateContentStream(ctx, c.modelName, buildContents(prompt), generationConfig()) {
		if err != nil {
			log.Error("Gemini stream failed", "error", err, "received", full.Len())
			return full.String(), err
		}
		text := resp.Text()
		if text == "" {
			continue
		}
		full.WriteString(text)
		if err := onChunk(text); err != nil {
			return full.String(), err
		}
	}

	if full.Len() == 0 {
		return "", errors.New("gemini returned an empty answer")
	}
	return full.String(), nil
}

func generationConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(config.ModelContext, genai.RoleUser),
		Temperature:       genai.Ptr(config.ModelTemperature),
	}
}

// buildContents puts the text prompt first and the media inline after it.
func buildContents(prompt llm.Prompt) []*genai.Content {
	parts := []*genai.Part{genai.NewPartFromText(llm.UserPrompt(prompt))}
	for _, att := range prompt.Attachments {
		parts = append(parts, genai.NewPartFromBytes(att.Data, att.MIMEType))
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}
