package llm

import (
	"strings"
	"testing"

	"github.com/akolanti/landbot/internal/config"
	"github.com/akolanti/landbot/internal/domain/chatModel"
	"github.com/akolanti/landbot/internal/media"
)

func TestHistoryText(t *testing.T) {
	history := []chatModel.HistoryEntry{
		{Role: chatModel.RoleUser, Content: "q1"},
		{Role: chatModel.RoleAssistant, Content: "a1"},
		{Role: chatModel.RoleUser, Content: "q2"},
		{Role: chatModel.RoleAssistant, Content: "a2"},
		{Role: chatModel.RoleSystem, Content: "ignored"},
		{Role: chatModel.RoleUser, Content: "  "},
		{Role: chatModel.RoleUser, Content: "q3"},
	}

	got := HistoryText(history)
	// only the last five entries count, system and blank entries are skipped
	want := "Utilisateur: q2 Expert: a2 Utilisateur: q3"
	if got != want {
		t.Errorf("HistoryText() = %q; want %q", got, want)
	}

	if HistoryText(nil) != "" {
		t.Error("expected empty history text for nil history")
	}
}

func TestUserPrompt(t *testing.T) {
	p := Prompt{
		Question: "Comment obtenir un titre foncier ?",
		Passages: []string{"passage un.", "passage deux."},
		History:  []chatModel.HistoryEntry{{Role: chatModel.RoleUser, Content: "Bonjour"}},
	}
	got := UserPrompt(p)

	ctxIdx := strings.Index(got, "CONTEXTE (informations officielles ANDF) : passage un. passage deux.")
	histIdx := strings.Index(got, "HISTORIQUE DE CONVERSATION : Utilisateur: Bonjour")
	qIdx := strings.Index(got, "NOUVELLE QUESTION : Comment obtenir un titre foncier ?")
	if ctxIdx < 0 || histIdx < 0 || qIdx < 0 {
		t.Fatalf("missing prompt section in %q", got)
	}
	if !(ctxIdx < histIdx && histIdx < qIdx) {
		t.Errorf("sections out of order: context=%d history=%d question=%d", ctxIdx, histIdx, qIdx)
	}
	if !strings.HasSuffix(got, config.AnswerInstruction) {
		t.Error("prompt should end with the answer instruction")
	}
}

func TestUserPrompt_NoContextNoHistory(t *testing.T) {
	got := UserPrompt(Prompt{Question: "Q ?"})
	if strings.Contains(got, "CONTEXTE") || strings.Contains(got, "HISTORIQUE") {
		t.Errorf("unexpected empty sections in %q", got)
	}
	if !strings.HasPrefix(got, "NOUVELLE QUESTION : Q ?") {
		t.Errorf("prompt should start with the question, got %q", got)
	}
}

func TestUserPrompt_MentionsAttachments(t *testing.T) {
	got := UserPrompt(Prompt{
		Question: "Que montre ce plan ?",
		Attachments: []media.Attachment{
			{Kind: media.KindImage, MIMEType: "image/png"},
			{Kind: media.KindAudio, MIMEType: "audio/wav"},
		},
	})
	if !strings.Contains(got, "(image, message vocal)") {
		t.Errorf("attachments not announced in %q", got)
	}
}
