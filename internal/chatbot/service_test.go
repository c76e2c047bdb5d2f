package chatbot_test

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/akolanti/landbot/internal/chatbot"
	"github.com/akolanti/landbot/internal/config"
	"github.com/akolanti/landbot/internal/data/database"
	"github.com/akolanti/landbot/internal/data/store"
	"github.com/akolanti/landbot/internal/domain/chatModel"
	"github.com/akolanti/landbot/internal/domain/commonModels"
	"github.com/akolanti/landbot/internal/rag"
	"github.com/stretchr/testify/require"
)

// 1x1 transparent png
var pngPixel = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

func newStore(t *testing.T) chatModel.ConversationStore {
	t.Helper()
	db, err := database.Open(database.Config{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return store.NewSQLConversationStore(db)
}

func defaultRAG() *MockRAG {
	return &MockRAG{
		Chunks: []string{"Un titre foncier ", "atteste la propriété."},
		Result: rag.Answer{
			Text:        "Un titre foncier atteste la propriété.",
			Passages:    []commonModels.Passage{{Content: "p1", DocName: "code.pdf"}},
			ContextUsed: 1,
			Sources:     []string{"code.pdf"},
		},
	}
}

func requireCode(t *testing.T, err error, code chatbot.ErrorCode) {
	t.Helper()
	var ce *chatbot.Error
	require.True(t, errors.As(err, &ce), "expected *chatbot.Error, got %v", err)
	require.Equal(t, code, ce.Code)
}

func TestPrepare_Validation(t *testing.T) {
	svc := chatbot.NewService(defaultRAG(), newStore(t))
	ctx := context.Background()

	cases := []struct {
		name   string
		in     chatbot.AskInput
		code   chatbot.ErrorCode
		reason string
	}{
		{"empty", chatbot.AskInput{Question: "   "}, chatbot.ErrorInvalidInput, "Question requise"},
		{"too long", chatbot.AskInput{Question: strings.Repeat("a", config.MaxQuestionLength+1)}, chatbot.ErrorInvalidInput, "Question trop longue"},
		{"bad image", chatbot.AskInput{Question: "q", ImageFile: "%%%"}, chatbot.ErrorInvalidInput, ""},
		{"unknown conversation", chatbot.AskInput{Question: "q", ConversationID: "3f2b6a7e-1111-4c1a-9b8e-000000000000"}, chatbot.ErrorNotFound, "Conversation introuvable"},
		{"malformed conversation id", chatbot.AskInput{Question: "q", ConversationID: "nope"}, chatbot.ErrorNotFound, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Prepare(ctx, tc.in)
			requireCode(t, err, tc.code)
			if tc.reason != "" {
				var ce *chatbot.Error
				require.ErrorAs(t, err, &ce)
				require.Equal(t, tc.reason, ce.Reason)
			}
		})
	}
}

func TestPrepare_NewConversationUsesClientHistory(t *testing.T) {
	svc := chatbot.NewService(defaultRAG(), newStore(t))
	history := make([]chatModel.HistoryEntry, 0, 8)
	for i := 0; i < 8; i++ {
		history = append(history, chatModel.HistoryEntry{Role: chatModel.RoleUser, Content: "h"})
	}

	turn, err := svc.Prepare(context.Background(), chatbot.AskInput{
		Question:            "  Comment obtenir un titre foncier ?  ",
		ImageFile:           pngPixel,
		ConversationHistory: history,
	})
	require.NoError(t, err)
	require.Equal(t, "Comment obtenir un titre foncier ?", turn.Question)
	require.True(t, turn.NewConversation)
	require.Len(t, turn.ConversationID, 36)
	require.Len(t, turn.History, config.HistoryWindow)
	require.NotNil(t, turn.Image)
	require.Nil(t, turn.Audio)
}

func TestStream_NewConversation(t *testing.T) {
	r := defaultRAG()
	st := newStore(t)
	svc := chatbot.NewService(r, st)
	ctx := context.Background()

	turn, err := svc.Prepare(ctx, chatbot.AskInput{
		Question:  "Qu'est-ce qu'un titre foncier ?",
		ImageFile: "data:image/png;base64," + pngPixel,
		Context:   map[string]any{"commune": "Cotonou"},
	})
	require.NoError(t, err)

	sink := &recordingSink{}
	require.NoError(t, svc.Stream(ctx, turn, sink))
	require.Equal(t, []chatModel.EventType{
		chatModel.EventMetadata, chatModel.EventChunk, chatModel.EventChunk, chatModel.EventComplete, chatModel.EventSaved,
	}, sink.types())

	meta := sink.events[0]
	require.True(t, meta.HasImage)
	require.False(t, meta.HasAudio)
	require.True(t, meta.NewConversation)
	require.Equal(t, 0, *meta.HistoryCount)
	require.Equal(t, config.AnswerSource, meta.Source)
	require.Equal(t, turn.ConversationID, meta.ConversationID)

	require.Equal(t, "Un titre foncier", sink.events[1].Accumulated)
	require.Equal(t, "Un titre foncier atteste la propriété.", sink.events[2].Accumulated)

	complete := sink.events[3]
	require.Equal(t, r.Result.Text, complete.FinalText)
	require.Equal(t, 1, *complete.ContextUsed)
	require.Equal(t, []string{"code.pdf"}, complete.Sources)

	saved := sink.events[4]
	require.Equal(t, turn.ConversationID, saved.ConversationID)
	require.NotEmpty(t, saved.UserMessageID)
	require.NotEmpty(t, saved.AssistantMessageID)

	require.Len(t, r.LastQuery.Attachments, 1)

	conv, messages, err := svc.Messages(ctx, turn.ConversationID)
	require.NoError(t, err)
	require.Equal(t, "Qu'est-ce qu'un titre foncier ?", conv.Title)
	require.Len(t, messages, 2)
	require.Equal(t, chatModel.MediaImage, messages[0].MediaType)
	require.JSONEq(t, `{"commune":"Cotonou"}`, string(messages[0].ContextUsed))
	require.Equal(t, saved.AssistantMessageID, messages[1].ID)
	require.Contains(t, string(messages[1].ContextUsed), `"sources":["code.pdf"]`)
}

func TestStream_ContinuesWithStoredHistory(t *testing.T) {
	r := defaultRAG()
	svc := chatbot.NewService(r, newStore(t))
	ctx := context.Background()

	first, err := svc.Prepare(ctx, chatbot.AskInput{Question: "Première question"})
	require.NoError(t, err)
	require.NoError(t, svc.Stream(ctx, first, &recordingSink{}))

	second, err := svc.Prepare(ctx, chatbot.AskInput{
		Question:            "Et ensuite ?",
		ConversationID:      first.ConversationID,
		ConversationHistory: []chatModel.HistoryEntry{{Role: chatModel.RoleUser, Content: "ignored"}},
	})
	require.NoError(t, err)
	require.False(t, second.NewConversation)
	require.Equal(t, []chatModel.HistoryEntry{
		{Role: chatModel.RoleUser, Content: "Première question"},
		{Role: chatModel.RoleAssistant, Content: r.Result.Text},
	}, second.History)

	sink := &recordingSink{}
	require.NoError(t, svc.Stream(ctx, second, sink))
	require.Equal(t, 2, *sink.events[0].HistoryCount)
	require.False(t, sink.events[0].NewConversation)

	_, messages, err := svc.Messages(ctx, first.ConversationID)
	require.NoError(t, err)
	require.Len(t, messages, 4)
	require.Equal(t, "Et ensuite ?", messages[2].Content)
}

func TestStream_GenerationFailureEmitsSingleError(t *testing.T) {
	r := defaultRAG()
	r.Err = errors.New("quota exceeded")
	st := newStore(t)
	svc := chatbot.NewService(r, st)
	ctx := context.Background()

	turn, err := svc.Prepare(ctx, chatbot.AskInput{Question: "q"})
	require.NoError(t, err)

	sink := &recordingSink{}
	require.Error(t, svc.Stream(ctx, turn, sink))
	require.Equal(t, []chatModel.EventType{chatModel.EventMetadata, chatModel.EventError}, sink.types())
	require.False(t, sink.events[1].Success)
	require.NotContains(t, sink.events[1].Error, "quota")

	list, err := st.ListConversations(ctx, 10, 0)
	require.NoError(t, err)
	require.Empty(t, list, "nothing persisted on failure")
}

func TestStream_DisconnectSkipsPersistence(t *testing.T) {
	st := newStore(t)
	svc := chatbot.NewService(defaultRAG(), st)
	ctx := context.Background()

	turn, err := svc.Prepare(ctx, chatbot.AskInput{Question: "q"})
	require.NoError(t, err)

	// second chunk never reaches the client
	sink := &recordingSink{failAt: 3}
	require.ErrorIs(t, svc.Stream(ctx, turn, sink), errClientGone)
	require.Len(t, sink.events, 2, "no error event after the client is gone")

	list, err := st.ListConversations(ctx, 10, 0)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestStream_PersistFailureEmitsError(t *testing.T) {
	svc := chatbot.NewService(defaultRAG(), failingStore{})
	ctx := context.Background()

	turn, err := svc.Prepare(ctx, chatbot.AskInput{Question: "q"})
	require.NoError(t, err)

	sink := &recordingSink{}
	require.Error(t, svc.Stream(ctx, turn, sink))
	types := sink.types()
	require.Equal(t, chatModel.EventComplete, types[len(types)-2])
	require.Equal(t, chatModel.EventError, types[len(types)-1])
}

func TestConverse(t *testing.T) {
	r := defaultRAG()
	svc := chatbot.NewService(r, newStore(t))
	ctx := context.Background()

	res, err := svc.Converse(ctx, chatbot.ConverseInput{Messages: []chatModel.HistoryEntry{
		{Role: chatModel.RoleUser, Content: "Bonjour"},
		{Role: chatModel.RoleAssistant, Content: "Bonjour, que puis-je faire ?"},
		{Role: chatModel.RoleUser, Content: "Qu'est-ce que l'ANDF ?"},
	}})
	require.NoError(t, err)
	require.False(t, r.Streamed)
	require.Equal(t, "Qu'est-ce que l'ANDF ?", r.LastQuery.Question)
	require.Len(t, r.LastQuery.History, 2)
	require.Equal(t, chatModel.RoleAssistant, res.Message.Role)
	require.Equal(t, r.Result.Text, res.Message.Content)
	require.Equal(t, 1, res.ContextUsed)

	_, messages, err := svc.Messages(ctx, res.ConversationID)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	_, err = svc.Converse(ctx, chatbot.ConverseInput{
		ConversationID: res.ConversationID,
		Messages:       []chatModel.HistoryEntry{{Role: chatModel.RoleUser, Content: "Suite"}},
	})
	require.NoError(t, err)
	_, messages, err = svc.Messages(ctx, res.ConversationID)
	require.NoError(t, err)
	require.Len(t, messages, 4)
}

func TestConverse_BackToBackTurnsAlternate(t *testing.T) {
	svc := chatbot.NewService(defaultRAG(), newStore(t))
	ctx := context.Background()

	first, err := svc.Converse(ctx, chatbot.ConverseInput{Messages: []chatModel.HistoryEntry{{Role: chatModel.RoleUser, Content: "q1"}}})
	require.NoError(t, err)
	for _, q := range []string{"q2", "q3"} {
		_, err := svc.Converse(ctx, chatbot.ConverseInput{
			ConversationID: first.ConversationID,
			Messages:       []chatModel.HistoryEntry{{Role: chatModel.RoleUser, Content: q}},
		})
		require.NoError(t, err)
	}

	_, messages, err := svc.Messages(ctx, first.ConversationID)
	require.NoError(t, err)
	require.Len(t, messages, 6)
	for i, m := range messages {
		if i%2 == 0 {
			require.Equal(t, chatModel.RoleUser, m.Role, "message %d", i)
			require.Equal(t, []string{"q1", "q2", "q3"}[i/2], m.Content)
		} else {
			require.Equal(t, chatModel.RoleAssistant, m.Role, "message %d", i)
		}
	}
}

func TestConverse_SavesWhenClientLeavesAfterAnswer(t *testing.T) {
	r := defaultRAG()
	svc := chatbot.NewService(r, newStore(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.OnAnswer = cancel

	res, err := svc.Converse(ctx, chatbot.ConverseInput{Messages: []chatModel.HistoryEntry{{Role: chatModel.RoleUser, Content: "q"}}})
	require.NoError(t, err)

	_, messages, err := svc.Messages(context.Background(), res.ConversationID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
}

func TestConverse_Errors(t *testing.T) {
	r := defaultRAG()
	svc := chatbot.NewService(r, newStore(t))
	ctx := context.Background()

	_, err := svc.Converse(ctx, chatbot.ConverseInput{})
	requireCode(t, err, chatbot.ErrorInvalidInput)

	_, err = svc.Converse(ctx, chatbot.ConverseInput{Messages: []chatModel.HistoryEntry{{Role: chatModel.RoleAssistant, Content: "x"}}})
	requireCode(t, err, chatbot.ErrorInvalidInput)
	var ce *chatbot.Error
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "Aucune question utilisateur trouvée", ce.Reason)

	r.Err = errors.New("boom")
	_, err = svc.Converse(ctx, chatbot.ConverseInput{Messages: []chatModel.HistoryEntry{{Role: chatModel.RoleUser, Content: "q"}}})
	requireCode(t, err, chatbot.ErrorUpstream)
}

func TestHealth(t *testing.T) {
	r := defaultRAG()
	r.Checks = []rag.Check{{Name: "llm", Status: rag.CheckOK}}
	report := chatbot.NewService(r, newStore(t)).Health(context.Background(), false)
	require.Equal(t, chatbot.StatusHealthy, report.Status)
	require.Len(t, report.Checks, 2)

	r.Checks = []rag.Check{{Name: "vector_db", Status: rag.CheckDegraded}}
	report = chatbot.NewService(r, newStore(t)).Health(context.Background(), false)
	require.Equal(t, chatbot.StatusDegraded, report.Status)

	report = chatbot.NewService(r, failingStore{pingErr: errors.New("db down")}).Health(context.Background(), false)
	require.Equal(t, chatbot.StatusUnhealthy, report.Status)
}

func TestErrorHTTPStatus(t *testing.T) {
	cases := map[chatbot.ErrorCode]int{
		chatbot.ErrorInvalidInput: http.StatusBadRequest,
		chatbot.ErrorNotFound:     http.StatusNotFound,
		chatbot.ErrorUpstream:     http.StatusBadGateway,
		chatbot.ErrorInternal:     http.StatusInternalServerError,
	}
	for code, status := range cases {
		require.Equal(t, status, (&chatbot.Error{Code: code}).HTTPStatus())
	}
}

func TestMediaAudioTurn(t *testing.T) {
	svc := chatbot.NewService(defaultRAG(), newStore(t))
	// "RIFF....WAVE" header is enough for detection
	wav := base64.StdEncoding.EncodeToString(append([]byte("RIFF\x24\x00\x00\x00WAVEfmt "), make([]byte, 32)...))
	turn, err := svc.Prepare(context.Background(), chatbot.AskInput{Question: "q", AudioFile: wav})
	require.NoError(t, err)
	require.NotNil(t, turn.Audio)
}
