package chatModel

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type MediaType string

const (
	MediaText       MediaType = "text"
	MediaImage      MediaType = "image"
	MediaAudio      MediaType = "audio"
	MediaMultimodal MediaType = "multimodal"
)

type Conversation struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	Title     string         `gorm:"size:200" json:"title"`
	Metadata  datatypes.JSON `json:"metadata,omitempty"`
	IsActive  bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`
	Messages  []Message      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

type Message struct {
	ID             string         `gorm:"primaryKey;size:36" json:"id"`
	ConversationID string         `gorm:"size:36;not null;uniqueIndex:idx_message_position,priority:1" json:"conversation_id"`
	Position       int64          `gorm:"not null;uniqueIndex:idx_message_position,priority:2" json:"position"`
	Role           Role           `gorm:"size:10;not null" json:"role"`
	Content        string         `gorm:"type:text;not null" json:"content"`
	MediaType      MediaType      `gorm:"size:16;not null;default:text" json:"media_type"`
	ContextUsed    datatypes.JSON `json:"context_used,omitempty"`
	CreatedAt      time.Time      `gorm:"index" json:"timestamp"`
}

type LastMessage struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"timestamp"`
}

type ConversationSummary struct {
	Conversation
	MessagesCount int64        `json:"messages_count"`
	LastMessage   *LastMessage `json:"last_message"`
}

// HistoryEntry is a role/content pair as clients send it in conversation_history.
type HistoryEntry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ConversationStore is the append-only chat log.
type ConversationStore interface {
	CreateConversation(ctx context.Context, conv Conversation) (Conversation, error)
	GetConversation(ctx context.Context, id string) (Conversation, bool, error)
	ListConversations(ctx context.Context, limit int, offset int) ([]ConversationSummary, error)
	AppendMessages(ctx context.Context, conversationId string, messages ...Message) ([]Message, error)
	GetMessages(ctx context.Context, conversationId string) ([]Message, error)
	RecentMessages(ctx context.Context, conversationId string, limit int) ([]Message, error)
	Ping(ctx context.Context) error
}

// HistoryCache keeps the recent-message window of hot conversations. Every Invalidate
// moves the conversation to a new generation; Fill only writes while the generation it
// was given is still current, so a window read before a concurrent append is dropped.
type HistoryCache interface {
	Get(ctx context.Context, conversationId string) ([]Message, bool)
	Put(ctx context.Context, conversationId string, messages []Message) error
	Generation(ctx context.Context, conversationId string) (int64, error)
	Fill(ctx context.Context, conversationId string, generation int64, messages []Message) (bool, error)
	Invalidate(ctx context.Context, conversationId string) error
}

var ErrConversationNotFound = errors.New("conversation not found")
