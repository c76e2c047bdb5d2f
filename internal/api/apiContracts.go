package api

import "time"

// requests---------------------

type HistoryMessage struct {
	Role    string `json:"role" example:"user"`
	Content string `json:"content" example:"Qu'est-ce qu'un titre foncier ?"`
}

type AskRequest struct {
	Question            string           `json:"question" validate:"required" example:"Comment obtenir un titre foncier ?"`
	ImageFile           string           `json:"image_file,omitempty" example:"data:image/png;base64,iVBORw0..."`
	AudioFile           string           `json:"audio_file,omitempty" example:"data:audio/webm;base64,GkXfo..."`
	ConversationID      string           `json:"conversation_id,omitempty" example:"3f2b6a7e-9c1d-4c1a-9b8e-5d2c1f0a7b6e"`
	ConversationHistory []HistoryMessage `json:"conversation_history,omitempty"`
	Context             map[string]any   `json:"context,omitempty"`
}

type ConverseRequest struct {
	Messages       []HistoryMessage `json:"messages" validate:"required"`
	ConversationID string           `json:"conversation_id,omitempty"`
}

// responses--------------------

type ErrorResponse struct {
	Success bool   `json:"success" example:"false"`
	Error   string `json:"error" example:"Question requise"`
	Code    string `json:"code,omitempty" example:"INVALID_INPUT"`
	Details string `json:"details,omitempty"`
}

type ChatMessage struct {
	Role      string    `json:"role" example:"assistant"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source" example:"ANDF + Expert IA"`
}

type ConverseResponse struct {
	Success        bool        `json:"success"`
	Message        ChatMessage `json:"message"`
	ConversationID string      `json:"conversation_id"`
	ContextUsed    int         `json:"context_used"`
	Sources        []string    `json:"sources,omitempty"`
}

type LastMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type ConversationItem struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
	MessagesCount int64        `json:"messages_count"`
	LastMessage   *LastMessage `json:"last_message"`
}

type ConversationListResponse struct {
	Success       bool               `json:"success"`
	Conversations []ConversationItem `json:"conversations"`
	Count         int                `json:"count"`
	Limit         int                `json:"limit"`
	Offset        int                `json:"offset"`
}

type MessageItem struct {
	ID          string         `json:"id"`
	Role        string         `json:"role"`
	Content     string         `json:"content"`
	MediaType   string         `json:"media_type"`
	ContextUsed map[string]any `json:"context_used,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

type MessagesResponse struct {
	Success      bool             `json:"success"`
	Conversation ConversationItem `json:"conversation"`
	Messages     []MessageItem    `json:"messages"`
}

type HealthCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type HealthResponse struct {
	Status         string        `json:"status" example:"healthy"`
	Service        string        `json:"service"`
	Model          string        `json:"model"`
	KnowledgeBase  string        `json:"knowledge_base"`
	TestSuccessful *bool         `json:"test_successful,omitempty"`
	Checks         []HealthCheck `json:"checks"`
	Timestamp      time.Time     `json:"timestamp"`
}

type InfoResponse struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Description  string   `json:"description"`
	Capabilities []string `json:"capabilities"`
	Languages    []string `json:"languages"`
	DataSources  []string `json:"data_sources"`
	Model        string   `json:"model"`
	Features     []string `json:"features"`
}

type SearchHit struct {
	Content string  `json:"content"`
	DocName string  `json:"doc_name"`
	PageNum int64   `json:"page_num"`
	Score   float32 `json:"score"`
}

type SearchResponse struct {
	Success bool        `json:"success"`
	Query   string      `json:"query"`
	Results []SearchHit `json:"results"`
}

// ingestion jobs----------------

type InitJobResponse struct {
	Id        string `json:"id" example:"job_cz109"`
	StatusURL string `json:"status_url"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Unsupported document type"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type JobResponse struct {
	Id             string            `json:"id" example:"job_cz109"`
	DocumentName   string            `json:"document_name"`
	Status         string            `json:"status" example:"COMPLETE"`
	Step           string            `json:"step" example:"Complete"`
	ChunksIngested int               `json:"chunks_ingested"`
	Error          *JobOutgoingError `json:"error,omitempty"`
	StartTime      time.Time         `json:"start_time"`
	EndTime        *time.Time        `json:"end_time,omitempty"`
}
