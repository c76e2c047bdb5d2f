package chatModel

type EventType string

const (
	EventMetadata EventType = "metadata"
	EventChunk    EventType = "chunk"
	EventComplete EventType = "complete"
	EventSaved    EventType = "saved"
	EventError    EventType = "error"
)

// StreamEvent is one line of the ask stream. Fields irrelevant to the event type stay empty.
type StreamEvent struct {
	Type    EventType `json:"type"`
	Success bool      `json:"success"`

	// metadata
	Question        string         `json:"question,omitempty"`
	Context         map[string]any `json:"context,omitempty"`
	HasImage        bool           `json:"has_image,omitempty"`
	HasAudio        bool           `json:"has_audio,omitempty"`
	Streaming       bool           `json:"streaming,omitempty"`
	HistoryCount    *int           `json:"conversation_history_count,omitempty"`
	NewConversation bool           `json:"new_conversation,omitempty"`

	// chunk
	Content     string `json:"content,omitempty"`
	Accumulated string `json:"accumulated,omitempty"`

	// complete
	FinalText   string   `json:"final_text,omitempty"`
	ContextUsed *int     `json:"context_used,omitempty"`
	HistoryUsed *int     `json:"history_used,omitempty"`
	Sources     []string `json:"sources,omitempty"`
	Cached      bool     `json:"cached,omitempty"`
	Source      string   `json:"source,omitempty"`

	// saved
	ConversationID     string `json:"conversation_id,omitempty"`
	UserMessageID      string `json:"user_message_id,omitempty"`
	AssistantMessageID string `json:"assistant_message_id,omitempty"`

	// error
	Error string `json:"error,omitempty"`
}

func IntPtr(v int) *int {
	return &v
}
