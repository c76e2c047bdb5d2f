package config

import (
	"log/slog"
	"time"
)

const (
	LOG_LEVEL_PROD              = slog.LevelInfo
	TRACE_ID_KEY                = "traceId"
	RATE_LIMIT_PER_SECOND       = 2
	BURST_RATE_LIMIT_PER_SECOND = 5
	CacheSimilarityCutoff       = 0.97

	EmbeddingOutputDimensionality int32 = 1536
	EmbeddingDBName                     = "land-knowledge"
	SemanticCacheDBName                 = "semantic-cache"

	MaxWorkerCount    int64 = 10
	MinWorkerCount    int64 = 1
	IdleWorkerTimeout       = 1 * time.Minute

	//serverTimeouts
	ReadTimeout            = 15 * time.Second
	WriteTimeout           = 30 * time.Second
	StreamWriteTimeout     = 3 * time.Minute
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	ServerListenAddr = ":8000"

	//ingest job buffer limit
	BufferLimit      = 100
	IngestJobTimeout = 10 * time.Minute

	//vectorDB
	QdrantHost             = "localhost"
	QdrantGrpcPort         = 6334
	QdrantUseTLS           = false
	QdrantPoolSize         = 1
	QdrantKeepAliveTimeout = 30 * time.Second

	//retrieval
	SearchTopK        = 5
	ContextPassages   = 3
	HistoryWindow     = 5
	MaxQuestionLength = 2000
	MaxMediaBytes     = 20 << 20
	MaxUploadBytes    = 32 << 20
	MaxAskBodyBytes   = 64 << 20
	RAGTimeout        = 2 * time.Minute

	//llm
	DefaultLLMProvider           = "gemini"
	GeminiModelName              = "gemini-2.5-flash"
	GoogleEmbeddingModel         = "gemini-embedding-001"
	OpenAIModelName              = "gpt-4o-mini"
	ModelTemperature     float32 = 0.4
	AnswerSource                 = "ANDF + Expert IA"

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//redis
	RedisAddr = "127.0.0.1:6379"

	//redis has 16 DB we can use
	RedisJobStore     = 0
	RedisHistoryCache = 1

	RedisJobStoreTTL     = 24 * time.Hour
	RedisHistoryCacheTTL = 30 * time.Minute
	HistoryCachePrefix   = "chat:history:"
	HistoryGenPrefix     = "chat:history-gen:"

	//database
	DefaultDatabaseDriver = "sqlite"
	DefaultDatabaseDSN    = "landbot.db"
	DBMaxIdleConns        = 5
	DBMaxOpenConns        = 20
	DBConnMaxLifetime     = 30 * time.Minute

	ConversationsPageSize = 50
	TitleMaxLength        = 60
	LastMessagePreviewLen = 100
)
