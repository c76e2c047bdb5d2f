package handlers

import (
	"github.com/akolanti/landbot/internal/chatbot"
	"github.com/akolanti/landbot/internal/job"
	"github.com/akolanti/landbot/internal/rag"
	"github.com/akolanti/landbot/pkg/logger_i"
)

var logRH = logger_i.NewLogger("RequestHandler")

type Handler struct {
	chat      *chatbot.Service
	jobs      *job.Service
	rag       rag.Service
	modelName string
	uploadDir string
}

type Deps struct {
	Chat      *chatbot.Service
	Jobs      *job.Service
	RAG       rag.Service
	ModelName string
	// UploadDir holds ingest uploads until their job runs. Empty means ./temporary_data.
	UploadDir string
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		chat:      d.Chat,
		jobs:      d.Jobs,
		rag:       d.RAG,
		modelName: d.ModelName,
		uploadDir: d.UploadDir,
	}
}
