package chatbot

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/akolanti/landbot/internal/adapter/utils"
	"github.com/akolanti/landbot/internal/config"
	"github.com/akolanti/landbot/internal/domain/chatModel"
	"github.com/akolanti/landbot/internal/media"
	"github.com/akolanti/landbot/internal/rag"
	"github.com/akolanti/landbot/pkg/logger_i"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const persistTimeout = 10 * time.Second

type Service struct {
	rag    rag.Service
	store  chatModel.ConversationStore
	logger *logger_i.Logger
}

func NewService(ragService rag.Service, store chatModel.ConversationStore) *Service {
	return &Service{
		rag:    ragService,
		store:  store,
		logger: logger_i.NewLogger("Chatbot"),
	}
}

type AskInput struct {
	Question            string
	ImageFile           string
	AudioFile           string
	ConversationID      string
	ConversationHistory []chatModel.HistoryEntry
	Context             map[string]any
}

// Turn is a validated ask request, ready to stream.
type Turn struct {
	Question        string
	Context         map[string]any
	Image           *media.Attachment
	Audio           *media.Attachment
	ConversationID  string
	NewConversation bool
	History         []chatModel.HistoryEntry
}

func (t *Turn) attachments() []media.Attachment {
	var atts []media.Attachment
	if t.Image != nil {
		atts = append(atts, *t.Image)
	}
	if t.Audio != nil {
		atts = append(atts, *t.Audio)
	}
	return atts
}

// EventSink receives the stream events in order. A Send error means the client is gone.
type EventSink interface {
	Send(event chatModel.StreamEvent) error
}

// Prepare validates the request and loads history. Every failure here happens before
// any byte of the stream is written.
func (s *Service) Prepare(ctx context.Context, in AskInput) (*Turn, error) {
	question, err := validateQuestion(in.Question)
	if err != nil {
		return nil, err
	}

	image, err := media.Decode(in.ImageFile, media.KindImage)
	if err != nil {
		return nil, newError(ErrorInvalidInput, "image_file invalide: "+err.Error(), err)
	}
	audio, err := media.Decode(in.AudioFile, media.KindAudio)
	if err != nil {
		return nil, newError(ErrorInvalidInput, "audio_file invalide: "+err.Error(), err)
	}

	turn := &Turn{
		Question: question,
		Context:  in.Context,
		Image:    image,
		Audio:    audio,
	}

	conversationID := strings.TrimSpace(in.ConversationID)
	if conversationID == "" {
		turn.ConversationID = utils.GetNewUUID()
		turn.NewConversation = true
		turn.History = lastEntries(in.ConversationHistory, config.HistoryWindow)
		return turn, nil
	}

	if err := s.requireConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	turn.ConversationID = conversationID

	// the stored log is authoritative over anything the client echoes back
	recent, err := s.store.RecentMessages(ctx, conversationID, config.HistoryWindow)
	if err != nil {
		return nil, newError(ErrorInternal, "Erreur de lecture de l'historique", err)
	}
	turn.History = toHistory(recent)
	return turn, nil
}

// Stream emits metadata, chunk*, complete, then persists the turn and emits saved.
// Failures after metadata become a single error event.
func (s *Service) Stream(ctx context.Context, turn *Turn, sink EventSink) error {
	log := s.logger.FromContext(ctx).With("conversationId", turn.ConversationID)

	err := sink.Send(chatModel.StreamEvent{
		Type:            chatModel.EventMetadata,
		Success:         true,
		Question:        turn.Question,
		Context:         turn.Context,
		HasImage:        turn.Image != nil,
		HasAudio:        turn.Audio != nil,
		Streaming:       true,
		HistoryCount:    chatModel.IntPtr(len(turn.History)),
		NewConversation: turn.NewConversation,
		Source:          config.AnswerSource,
		ConversationID:  turn.ConversationID,
	})
	if err != nil {
		return err
	}

	var accumulated strings.Builder
	var sendErr error
	answer, err := s.rag.Answer(ctx, rag.Query{
		Question:    turn.Question,
		History:     turn.History,
		Attachments: turn.attachments(),
	}, func(chunk string) error {
		accumulated.WriteString(chunk)
		sendErr = sink.Send(chatModel.StreamEvent{
			Type:        chatModel.EventChunk,
			Success:     true,
			Content:     chunk,
			Accumulated: strings.TrimSpace(accumulated.String()),
		})
		return sendErr
	})
	if err != nil {
		if sendErr != nil || ctx.Err() != nil {
			log.Info("Client went away during generation, turn not saved", "error", errors.Join(sendErr, ctx.Err()))
			return errors.Join(sendErr, ctx.Err())
		}
		log.Error("Answer generation failed", "error", err)
		return s.fail(sink, "Erreur lors de la génération de la réponse", err)
	}

	err = sink.Send(chatModel.StreamEvent{
		Type:        chatModel.EventComplete,
		Success:     true,
		FinalText:   answer.Text,
		ContextUsed: chatModel.IntPtr(answer.ContextUsed),
		HistoryUsed: chatModel.IntPtr(len(turn.History)),
		Sources:     answer.Sources,
		Cached:      answer.Cached,
		Source:      config.AnswerSource,
	})
	if err != nil || ctx.Err() != nil {
		log.Info("Client went away before the turn was saved")
		return errors.Join(err, ctx.Err())
	}

	userMsg, assistantMsg := s.buildMessages(turn.Question, media.MessageMediaType(turn.Image, turn.Audio), turn.Context, answer)
	if err := s.persist(ctx, turn.ConversationID, turn.NewConversation, turn.Question, userMsg, assistantMsg); err != nil {
		log.Error("Failed to persist turn", "error", err)
		return s.fail(sink, "Erreur lors de la sauvegarde de la conversation", err)
	}

	return sink.Send(chatModel.StreamEvent{
		Type:               chatModel.EventSaved,
		Success:            true,
		ConversationID:     turn.ConversationID,
		NewConversation:    turn.NewConversation,
		UserMessageID:      userMsg.ID,
		AssistantMessageID: assistantMsg.ID,
	})
}

type ConverseInput struct {
	Messages       []chatModel.HistoryEntry
	ConversationID string
}

type ConverseResult struct {
	ConversationID string
	Message        chatModel.Message
	ContextUsed    int
	Sources        []string
	Cached         bool
}

// Converse answers the last user message of a client held transcript in one call and
// appends the exchange to the conversation log.
func (s *Service) Converse(ctx context.Context, in ConverseInput) (ConverseResult, error) {
	if len(in.Messages) == 0 {
		return ConverseResult{}, newError(ErrorInvalidInput, "Liste de messages requise", nil)
	}
	lastUser := -1
	for i := len(in.Messages) - 1; i >= 0; i-- {
		if in.Messages[i].Role == chatModel.RoleUser && strings.TrimSpace(in.Messages[i].Content) != "" {
			lastUser = i
			break
		}
	}
	if lastUser < 0 {
		return ConverseResult{}, newError(ErrorInvalidInput, "Aucune question utilisateur trouvée", nil)
	}
	question, err := validateQuestion(in.Messages[lastUser].Content)
	if err != nil {
		return ConverseResult{}, err
	}

	conversationID := strings.TrimSpace(in.ConversationID)
	isNew := conversationID == ""
	if isNew {
		conversationID = utils.GetNewUUID()
	} else if err := s.requireConversation(ctx, conversationID); err != nil {
		return ConverseResult{}, err
	}

	history := lastEntries(in.Messages[:lastUser], config.HistoryWindow)
	answer, err := s.rag.Answer(ctx, rag.Query{Question: question, History: history}, nil)
	if err != nil {
		s.logger.FromContext(ctx).Error("Conversation answer failed", "error", err)
		return ConverseResult{}, newError(ErrorUpstream, "Erreur traitement conversation", err)
	}

	userMsg, assistantMsg := s.buildMessages(question, chatModel.MediaText, nil, answer)
	if err := s.persist(ctx, conversationID, isNew, question, userMsg, assistantMsg); err != nil {
		return ConverseResult{}, newError(ErrorInternal, "Erreur lors de la sauvegarde de la conversation", err)
	}

	return ConverseResult{
		ConversationID: conversationID,
		Message:        assistantMsg,
		ContextUsed:    answer.ContextUsed,
		Sources:        answer.Sources,
		Cached:         answer.Cached,
	}, nil
}

func (s *Service) ListConversations(ctx context.Context, limit int, offset int) ([]chatModel.ConversationSummary, error) {
	list, err := s.store.ListConversations(ctx, limit, offset)
	if err != nil {
		return nil, newError(ErrorInternal, "Erreur de lecture des conversations", err)
	}
	return list, nil
}

func (s *Service) Messages(ctx context.Context, conversationID string) (chatModel.Conversation, []chatModel.Message, error) {
	if _, err := uuid.Parse(conversationID); err != nil {
		return chatModel.Conversation{}, nil, newError(ErrorNotFound, "Conversation introuvable", err)
	}
	conv, found, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return conv, nil, newError(ErrorInternal, "Erreur de lecture de la conversation", err)
	}
	if !found {
		return conv, nil, newError(ErrorNotFound, "Conversation introuvable", chatModel.ErrConversationNotFound)
	}
	messages, err := s.store.GetMessages(ctx, conversationID)
	if err != nil {
		return conv, nil, newError(ErrorInternal, "Erreur de lecture des messages", err)
	}
	return conv, messages, nil
}

func (s *Service) requireConversation(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return newError(ErrorNotFound, "Conversation introuvable", err)
	}
	_, found, err := s.store.GetConversation(ctx, id)
	if err != nil {
		return newError(ErrorInternal, "Erreur de lecture de la conversation", err)
	}
	if !found {
		return newError(ErrorNotFound, "Conversation introuvable", chatModel.ErrConversationNotFound)
	}
	return nil
}

func (s *Service) buildMessages(question string, mediaType chatModel.MediaType, reqContext map[string]any, answer rag.Answer) (chatModel.Message, chatModel.Message) {
	now := time.Now()
	user := chatModel.Message{
		ID:        utils.GetNewUUID(),
		Role:      chatModel.RoleUser,
		Content:   question,
		MediaType: mediaType,
		CreatedAt: now,
	}
	if len(reqContext) > 0 {
		user.ContextUsed = toJSON(reqContext)
	}

	passages := make([]string, 0, len(answer.Passages))
	for _, p := range answer.Passages {
		passages = append(passages, p.Content)
	}
	assistant := chatModel.Message{
		ID:        utils.GetNewUUID(),
		Role:      chatModel.RoleAssistant,
		Content:   answer.Text,
		MediaType: chatModel.MediaText,
		CreatedAt: now,
		ContextUsed: toJSON(map[string]any{
			"context_used": answer.ContextUsed,
			"passages":     passages,
			"sources":      answer.Sources,
			"cached":       answer.Cached,
			"fallback":     answer.Fallback,
		}),
	}
	return user, assistant
}

// persist saves a finished turn. It outlives the request so an answer the client already
// received is not lost when the connection drops.
func (s *Service) persist(ctx context.Context, conversationID string, isNew bool, question string, messages ...chatModel.Message) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if isNew {
		_, err := s.store.CreateConversation(ctx, chatModel.Conversation{
			ID:       conversationID,
			Title:    utils.Truncate(question, config.TitleMaxLength),
			Messages: messages,
		})
		return err
	}
	_, err := s.store.AppendMessages(ctx, conversationID, messages...)
	return err
}

func (s *Service) fail(sink EventSink, message string, cause error) error {
	if err := sink.Send(chatModel.StreamEvent{Type: chatModel.EventError, Success: false, Error: message}); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

func validateQuestion(raw string) (string, error) {
	question := strings.TrimSpace(raw)
	if question == "" {
		return "", newError(ErrorInvalidInput, "Question requise", nil)
	}
	if utf8.RuneCountInString(question) > config.MaxQuestionLength {
		return "", newError(ErrorInvalidInput, "Question trop longue", nil)
	}
	return question, nil
}

func toHistory(messages []chatModel.Message) []chatModel.HistoryEntry {
	history := make([]chatModel.HistoryEntry, 0, len(messages))
	for _, m := range messages {
		if m.Role == chatModel.RoleSystem {
			continue
		}
		history = append(history, chatModel.HistoryEntry{Role: m.Role, Content: m.Content})
	}
	return history
}

func lastEntries(entries []chatModel.HistoryEntry, n int) []chatModel.HistoryEntry {
	if len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	out := make([]chatModel.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		if (e.Role == chatModel.RoleUser || e.Role == chatModel.RoleAssistant) && strings.TrimSpace(e.Content) != "" {
			out = append(out, e)
		}
	}
	return out
}

func toJSON(v any) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}
