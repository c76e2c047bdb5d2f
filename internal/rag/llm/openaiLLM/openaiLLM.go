// Package openaiLLM talks to any OpenAI compatible chat completions endpoint.
package openaiLLM

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/akolanti/landbot/internal/config"
	"github.com/akolanti/landbot/internal/media"
	"github.com/akolanti/landbot/internal/rag/llm"
	"github.com/akolanti/landbot/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var logger = logger_i.NewLogger("llm_openai")

// the chat completions API only takes these two audio formats inline
var audioFormats = map[string]string{
	"audio/wav":   "wav",
	"audio/x-wav": "wav",
	"audio/wave":  "wav",
	"audio/mpeg":  "mp3",
	"audio/mp3":   "mp3",
}

type llmClient struct {
	client    openai.Client
	modelName string
}

func NewOpenAIClient(apiKey string, baseURL string, modelName string, httpClient *http.Client) llm.Provider {
	if modelName == "" {
		modelName = config.OpenAIModelName
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	logger.Info("OpenAI client created", "model", modelName, "customBaseURL", baseURL != "")
	return &llmClient{client: openai.NewClient(opts...), modelName: modelName}
}

func (c *llmClient) Name() string {
	return "openai:" + c.modelName
}

func (c *llmClient) Generate(ctx context.Context, prompt llm.Prompt) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, c.params(ctx, prompt))
	if err != nil {
		logger.FromContext(ctx).Error("OpenAI generation failed", "error", err)
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.New("openai returned an empty answer")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *llmClient) GenerateStream(ctx context.Context, prompt llm.Prompt, onChunk func(string) error) (string, error) {
	stream := c.client.Chat.Completions.NewStreaming(ctx, c.params(ctx, prompt))
	defer stream.Close()

	var full strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		text := chunk.Choices[0].Delta.Content
		if text == "" {
			continue
		}
		full.WriteString(text)
		if err := onChunk(text); err != nil {
			return full.String(), err
		}
	}
	if err := stream.Err(); err != nil {
		logger.FromContext(ctx).Error("OpenAI stream failed", "error", err, "received", full.Len())
		return full.String(), err
	}
	if full.Len() == 0 {
		return "", errors.New("openai returned an empty answer")
	}
	return full.String(), nil
}

func (c *llmClient) params(ctx context.Context, prompt llm.Prompt) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model:       c.modelName,
		Temperature: openai.Float(float64(config.ModelTemperature)),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(config.ModelContext),
			openai.UserMessage(userParts(ctx, prompt)),
		},
	}
}

func userParts(ctx context.Context, prompt llm.Prompt) []openai.ChatCompletionContentPartUnionParam {
	parts := []openai.ChatCompletionContentPartUnionParam{openai.TextContentPart(llm.UserPrompt(prompt))}
	for _, att := range prompt.Attachments {
		encoded := base64.StdEncoding.EncodeToString(att.Data)
		switch att.Kind {
		case media.KindImage:
			parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: "data:" + att.MIMEType + ";base64," + encoded,
			}))
		case media.KindAudio:
			format, ok := audioFormats[att.MIMEType]
			if !ok {
				logger.FromContext(ctx).Warn("Audio format not supported by provider, dropping attachment", "mime", att.MIMEType)
				continue
			}
			parts = append(parts, openai.InputAudioContentPart(openai.ChatCompletionContentPartInputAudioInputAudioParam{
				Data:   encoded,
				Format: format,
			}))
		}
	}
	return parts
}
