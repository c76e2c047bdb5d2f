package store

import (
	"context"
	"encoding/json"

	"github.com/akolanti/landbot/internal/config"
	"github.com/akolanti/landbot/internal/data/redisStore"
	"github.com/akolanti/landbot/internal/domain/chatModel"
	"github.com/akolanti/landbot/pkg/logger_i"
)

// RedisHistoryCache keeps the last few messages of a conversation as a JSON list.
type RedisHistoryCache struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

// GetRedisHistoryCache returns nil when redis is offline.
func GetRedisHistoryCache(ctx context.Context) *RedisHistoryCache {
	s := redisStore.GetRedisStore(ctx, config.RedisHistoryCache)
	if s == nil {
		return nil
	}
	return NewRedisHistoryCache(s)
}

func NewRedisHistoryCache(s *redisStore.Store) *RedisHistoryCache {
	return &RedisHistoryCache{
		store:  s,
		logger: logger_i.NewLogger("HistoryCache"),
	}
}

func historyKey(conversationId string) string {
	return config.HistoryCachePrefix + conversationId
}

func generationKey(conversationId string) string {
	return config.HistoryGenPrefix + conversationId
}

func (c *RedisHistoryCache) Get(ctx context.Context, conversationId string) ([]chatModel.Message, bool) {
	log := c.logger.FromContext(ctx).With("conversationId", conversationId)
	raw, err := c.store.ListGetLast(ctx, historyKey(conversationId), config.HistoryWindow)
	if err != nil {
		log.Warn("Failed to read history cache", "error", err)
		return nil, false
	}
	if len(raw) == 0 {
		return nil, false
	}

	messages := make([]chatModel.Message, 0, len(raw))
	for _, item := range raw {
		var m chatModel.Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			log.Warn("Corrupt history cache entry, ignoring cache", "error", err)
			return nil, false
		}
		messages = append(messages, m)
	}
	log.Debug("History cache hit", "messages", len(messages))
	return messages, true
}

func (c *RedisHistoryCache) Put(ctx context.Context, conversationId string, messages []chatModel.Message) error {
	values, err := encodeMessages(messages)
	if err != nil {
		return err
	}
	return c.store.ListReplace(ctx, historyKey(conversationId), values, config.RedisHistoryCacheTTL)
}

func (c *RedisHistoryCache) Generation(ctx context.Context, conversationId string) (int64, error) {
	return c.store.GetInt64(ctx, generationKey(conversationId))
}

func (c *RedisHistoryCache) Fill(ctx context.Context, conversationId string, generation int64, messages []chatModel.Message) (bool, error) {
	values, err := encodeMessages(messages)
	if err != nil {
		return false, err
	}
	return c.store.ListReplaceIf(ctx, historyKey(conversationId), generationKey(conversationId), generation, values, config.RedisHistoryCacheTTL)
}

// Invalidate bumps the generation before dropping the list so an in-flight Fill cannot
// write back what it read earlier.
func (c *RedisHistoryCache) Invalidate(ctx context.Context, conversationId string) error {
	// outlive the list so a fill never sees the counter reset while its window is cached
	if _, err := c.store.IncrWithTTL(ctx, generationKey(conversationId), 2*config.RedisHistoryCacheTTL); err != nil {
		return err
	}
	return c.store.Del(ctx, historyKey(conversationId))
}

func encodeMessages(messages []chatModel.Message) ([]interface{}, error) {
	values := make([]interface{}, 0, len(messages))
	for _, m := range messages {
		data, err := json.Marshal(m)
		if err != nil {
			return nil, err
		}
		values = append(values, data)
	}
	return values, nil
}
