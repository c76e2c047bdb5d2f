package store

import (
	"context"

	"github.com/akolanti/landbot/internal/config"
	"github.com/akolanti/landbot/internal/domain/chatModel"
	"github.com/akolanti/landbot/pkg/logger_i"
)

// CachedConversationStore serves the history window from a HistoryCache and
// keeps it coherent on writes. Everything else goes to the inner store.
type CachedConversationStore struct {
	chatModel.ConversationStore
	cache  chatModel.HistoryCache
	logger *logger_i.Logger
}

// NewCachedConversationStore returns inner untouched when there is no cache.
func NewCachedConversationStore(inner chatModel.ConversationStore, cache chatModel.HistoryCache) chatModel.ConversationStore {
	if cache == nil {
		return inner
	}
	return &CachedConversationStore{
		ConversationStore: inner,
		cache:             cache,
		logger:            logger_i.NewLogger("CachedConversationStore"),
	}
}

func (s *CachedConversationStore) CreateConversation(ctx context.Context, conv chatModel.Conversation) (chatModel.Conversation, error) {
	created, err := s.ConversationStore.CreateConversation(ctx, conv)
	if err != nil {
		return created, err
	}
	if len(created.Messages) > 0 {
		if err := s.cache.Put(ctx, created.ID, tail(created.Messages, config.HistoryWindow)); err != nil {
			s.logger.FromContext(ctx).Warn("Failed to warm history cache", "conversationId", created.ID, "error", err)
		}
	}
	return created, nil
}

func (s *CachedConversationStore) AppendMessages(ctx context.Context, conversationId string, messages ...chatModel.Message) ([]chatModel.Message, error) {
	saved, err := s.ConversationStore.AppendMessages(ctx, conversationId, messages...)
	if err != nil {
		return saved, err
	}
	if err := s.cache.Invalidate(ctx, conversationId); err != nil {
		s.logger.FromContext(ctx).Warn("Failed to invalidate history cache", "conversationId", conversationId, "error", err)
	}
	return saved, nil
}

func (s *CachedConversationStore) RecentMessages(ctx context.Context, conversationId string, limit int) ([]chatModel.Message, error) {
	if limit > config.HistoryWindow {
		return s.ConversationStore.RecentMessages(ctx, conversationId, limit)
	}
	if cached, ok := s.cache.Get(ctx, conversationId); ok {
		return tail(cached, limit), nil
	}

	log := s.logger.FromContext(ctx).With("conversationId", conversationId)
	generation, genErr := s.cache.Generation(ctx, conversationId)
	if genErr != nil {
		log.Warn("Failed to read history generation", "error", genErr)
	}

	messages, err := s.ConversationStore.RecentMessages(ctx, conversationId, config.HistoryWindow)
	if err != nil {
		return nil, err
	}
	if len(messages) > 0 && genErr == nil {
		filled, err := s.cache.Fill(ctx, conversationId, generation, messages)
		switch {
		case err != nil:
			log.Warn("Failed to fill history cache", "error", err)
		case !filled:
			log.Debug("Conversation changed while reading, history cache left empty")
		}
	}
	return tail(messages, limit), nil
}

func tail(messages []chatModel.Message, n int) []chatModel.Message {
	if n <= 0 || len(messages) <= n {
		return messages
	}
	return messages[len(messages)-n:]
}
