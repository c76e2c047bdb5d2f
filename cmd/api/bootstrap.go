package main

import (
	"context"
	"errors"
	"io"

	"github.com/akolanti/landbot/internal/chatbot"
	"github.com/akolanti/landbot/internal/config"
	"github.com/akolanti/landbot/internal/customHttpClient"
	"github.com/akolanti/landbot/internal/data/database"
	"github.com/akolanti/landbot/internal/data/redisStore"
	"github.com/akolanti/landbot/internal/data/store"
	"github.com/akolanti/landbot/internal/domain/chatModel"
	"github.com/akolanti/landbot/internal/rag"
	"github.com/akolanti/landbot/internal/rag/embedding"
	"github.com/akolanti/landbot/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/landbot/internal/rag/llm"
	"github.com/akolanti/landbot/internal/rag/llm/gemini"
	"github.com/akolanti/landbot/internal/rag/llm/openaiLLM"
	"github.com/akolanti/landbot/internal/rag/vectorDB"
	"github.com/akolanti/landbot/internal/rag/vectorDB/qdrantDB"
	"github.com/akolanti/landbot/pkg/logger_i"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// app holds the services shared by every command.
type app struct {
	settings  *config.Settings
	db        *gorm.DB
	rag       rag.Service
	chat      *chatbot.Service
	modelName string

	ctx           context.Context
	closeServices context.CancelFunc
}

func loadSettings(cmd *cobra.Command, logOutput io.Writer) (*config.Settings, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	settings, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	logger_i.InitWithWriter(logOutput, settings.Debug)
	return settings, nil
}

// bootstrap connects the database, redis, qdrant and the model providers. Qdrant and the
// embedder are optional; answers then fall back to the default knowledge.
func bootstrap(cmd *cobra.Command, logOutput io.Writer) (*app, error) {
	settings, err := loadSettings(cmd, logOutput)
	if err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	logger := logger_i.NewLogger("main")

	redisStore.Configure(redisStore.Options{Addr: settings.RedisAddr, Password: settings.RedisPassword})

	serviceContext, closeExternalServices := context.WithCancel(context.Background())

	db, err := database.Open(database.Config{
		Driver: settings.DatabaseDriver,
		DSN:    settings.DatabaseDSN,
		Debug:  settings.Debug,
	})
	if err != nil {
		closeExternalServices()
		return nil, err
	}

	var historyCache chatModel.HistoryCache
	if cache := store.GetRedisHistoryCache(serviceContext); cache != nil {
		historyCache = cache
	} else {
		logger.Warn("Redis is offline, conversation history is read from the database only")
	}
	conversationStore := store.NewCachedConversationStore(store.NewSQLConversationStore(db), historyCache)

	httpClient := customHttpClient.GetPooledClient()

	var vectorStore vectorDB.DataProcessor
	if holder := qdrantDB.GetQuadrantClient(serviceContext, settings.QdrantHost, settings.QdrantPort); holder != nil {
		vectorStore = holder
	}
	var embedder embedding.Embedder = googleEmbedding.GetGoogleEmbeddingClient(serviceContext, settings.EmbeddingModel, settings.APIKey(), httpClient)

	var llmProvider llm.Provider
	modelName := settings.GeminiModel
	switch settings.LLMProvider {
	case "openai":
		modelName = settings.OpenAIModel
		llmProvider = openaiLLM.NewOpenAIClient(settings.OpenAIAPIKey, settings.OpenAIBaseURL, settings.OpenAIModel, httpClient)
	default:
		llmProvider = gemini.GetGeminiClient(serviceContext, settings.APIKey(), settings.GeminiModel, httpClient)
	}

	if llmProvider == nil {
		closeExternalServices()
		_ = database.Close(db)
		return nil, errors.New("the language model client failed to initialize")
	}
	logger.Debug("Available services", "VectorDB", vectorStore != nil, "EmbeddingService", embedder != nil, "LLMProvider", llmProvider.Name())
	if vectorStore == nil || embedder == nil {
		logger.Warn("Knowledge base unavailable, answers will use the default knowledge")
	}

	ragService := rag.NewService(vectorStore, llmProvider, embedder)
	return &app{
		settings:      settings,
		db:            db,
		rag:           ragService,
		chat:          chatbot.NewService(ragService, conversationStore),
		modelName:     modelName,
		ctx:           serviceContext,
		closeServices: closeExternalServices,
	}, nil
}

func (a *app) Close() {
	a.closeServices()
	if err := database.Close(a.db); err != nil {
		logger_i.NewLogger("main").Error("Error closing database", "error", err)
	}
}
