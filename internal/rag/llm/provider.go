package llm

import (
	"context"
	"strings"

	"github.com/akolanti/landbot/internal/config"
	"github.com/akolanti/landbot/internal/domain/chatModel"
	"github.com/akolanti/landbot/internal/media"
)

// Prompt is everything a provider needs for one answer.
type Prompt struct {
	Question    string
	Passages    []string
	History     []chatModel.HistoryEntry
	Attachments []media.Attachment
}

type Provider interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
	// GenerateStream calls onChunk for every text delta and returns the raw concatenation.
	// An onChunk error stops generation and is returned as is.
	GenerateStream(ctx context.Context, prompt Prompt, onChunk func(string) error) (string, error)
	Name() string
}

// UserPrompt renders the user turn: context, history and the new question, in that order.
func UserPrompt(p Prompt) string {
	parts := make([]string, 0, 4)
	if ctxText := strings.TrimSpace(strings.Join(p.Passages, " ")); ctxText != "" {
		parts = append(parts, "CONTEXTE (informations officielles ANDF) : "+ctxText)
	}
	if history := HistoryText(p.History); history != "" {
		parts = append(parts, "HISTORIQUE DE CONVERSATION : "+history)
	}
	parts = append(parts, "NOUVELLE QUESTION : "+p.Question)
	if len(p.Attachments) > 0 {
		parts = append(parts, "La question est accompagnée de pièces jointes ("+attachmentKinds(p.Attachments)+"). Analyse-les pour répondre.")
	}
	parts = append(parts, config.AnswerInstruction)
	return strings.Join(parts, "\n\n")
}

// HistoryText flattens the last HistoryWindow user and assistant turns.
func HistoryText(history []chatModel.HistoryEntry) string {
	if len(history) > config.HistoryWindow {
		history = history[len(history)-config.HistoryWindow:]
	}
	lines := make([]string, 0, len(history))
	for _, h := range history {
		content := strings.TrimSpace(h.Content)
		if content == "" {
			continue
		}
		switch h.Role {
		case chatModel.RoleUser:
			lines = append(lines, "Utilisateur: "+content)
		case chatModel.RoleAssistant:
			lines = append(lines, "Expert: "+content)
		}
	}
	return strings.Join(lines, " ")
}

func attachmentKinds(atts []media.Attachment) string {
	kinds := make([]string, 0, len(atts))
	for _, a := range atts {
		switch a.Kind {
		case media.KindImage:
			kinds = append(kinds, "image")
		case media.KindAudio:
			kinds = append(kinds, "message vocal")
		}
	}
	return strings.Join(kinds, ", ")
}
