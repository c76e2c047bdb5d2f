package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/landbot/internal/adapter/utils"
	"github.com/akolanti/landbot/internal/config"
	"github.com/akolanti/landbot/internal/domain/chatModel"
	"github.com/akolanti/landbot/pkg/logger_i"
	"gorm.io/gorm"
)

type SQLConversationStore struct {
	db     *gorm.DB
	logger *logger_i.Logger
}

func NewSQLConversationStore(db *gorm.DB) *SQLConversationStore {
	return &SQLConversationStore{
		db:     db,
		logger: logger_i.NewLogger("ConversationStore"),
	}
}

// CreateConversation inserts the conversation together with any messages attached to it.
func (s *SQLConversationStore) CreateConversation(ctx context.Context, conv chatModel.Conversation) (chatModel.Conversation, error) {
	if conv.ID == "" {
		conv.ID = utils.GetNewUUID()
	}
	conv.IsActive = true
	prepareMessages(conv.ID, conv.Messages, time.Now(), 0)

	if err := s.db.WithContext(ctx).Create(&conv).Error; err != nil {
		return chatModel.Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	s.logger.FromContext(ctx).Debug("Created conversation", "conversationId", conv.ID, "messages", len(conv.Messages))
	return conv, nil
}

func (s *SQLConversationStore) GetConversation(ctx context.Context, id string) (chatModel.Conversation, bool, error) {
	var conv chatModel.Conversation
	err := s.db.WithContext(ctx).First(&conv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return conv, false, nil
	}
	if err != nil {
		return conv, false, fmt.Errorf("get conversation: %w", err)
	}
	return conv, true, nil
}

func (s *SQLConversationStore) ListConversations(ctx context.Context, limit int, offset int) ([]chatModel.ConversationSummary, error) {
	if limit <= 0 || limit > config.ConversationsPageSize {
		limit = config.ConversationsPageSize
	}
	if offset < 0 {
		offset = 0
	}

	var convs []chatModel.Conversation
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("updated_at desc").
		Limit(limit).
		Offset(offset).
		Find(&convs).Error
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	summaries := make([]chatModel.ConversationSummary, 0, len(convs))
	if len(convs) == 0 {
		return summaries, nil
	}

	ids := make([]string, len(convs))
	for i, c := range convs {
		ids[i] = c.ID
	}
	var counts []struct {
		ConversationID string
		Total          int64
	}
	err = s.db.WithContext(ctx).
		Model(&chatModel.Message{}).
		Select("conversation_id, count(*) as total").
		Where("conversation_id IN ?", ids).
		Group("conversation_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}
	countByID := make(map[string]int64, len(counts))
	for _, c := range counts {
		countByID[c.ConversationID] = c.Total
	}

	for _, c := range convs {
		summary := chatModel.ConversationSummary{Conversation: c, MessagesCount: countByID[c.ID]}
		if summary.MessagesCount > 0 {
			last, err := s.RecentMessages(ctx, c.ID, 1)
			if err != nil {
				return nil, err
			}
			if len(last) == 1 {
				summary.LastMessage = &chatModel.LastMessage{
					Role:      last[0].Role,
					Content:   utils.Truncate(last[0].Content, config.LastMessagePreviewLen),
					CreatedAt: last[0].CreatedAt,
				}
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// AppendMessages adds messages to an existing conversation and bumps its updated_at,
// in one transaction.
func (s *SQLConversationStore) AppendMessages(ctx context.Context, conversationId string, messages ...chatModel.Message) ([]chatModel.Message, error) {
	if len(messages) == 0 {
		return messages, nil
	}
	now := time.Now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// the row lock taken here serializes concurrent appends to one conversation
		res := tx.Model(&chatModel.Conversation{}).
			Where("id = ?", conversationId).
			Update("updated_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return chatModel.ErrConversationNotFound
		}
		var last int64
		err := tx.Model(&chatModel.Message{}).
			Where("conversation_id = ?", conversationId).
			Select("COALESCE(MAX(position), -1)").
			Row().Scan(&last)
		if err != nil {
			return err
		}
		prepareMessages(conversationId, messages, now, last+1)
		return tx.Create(&messages).Error
	})
	if err != nil {
		if errors.Is(err, chatModel.ErrConversationNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("append messages: %w", err)
	}
	s.logger.FromContext(ctx).Debug("Appended messages", "conversationId", conversationId, "count", len(messages))
	return messages, nil
}

func (s *SQLConversationStore) GetMessages(ctx context.Context, conversationId string) ([]chatModel.Message, error) {
	messages := make([]chatModel.Message, 0)
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationId).
		Order("position asc").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	return messages, nil
}

// RecentMessages returns the last limit messages, oldest first.
func (s *SQLConversationStore) RecentMessages(ctx context.Context, conversationId string, limit int) ([]chatModel.Message, error) {
	messages := make([]chatModel.Message, 0, limit)
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationId).
		Order("position desc").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	return utils.ReverseMessages(messages), nil
}

func (s *SQLConversationStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// prepareMessages fills ids and assigns consecutive positions from first.
func prepareMessages(conversationId string, messages []chatModel.Message, now time.Time, first int64) {
	for i := range messages {
		messages[i].ConversationID = conversationId
		messages[i].Position = first + int64(i)
		if messages[i].ID == "" {
			messages[i].ID = utils.GetNewUUID()
		}
		if messages[i].MediaType == "" {
			messages[i].MediaType = chatModel.MediaText
		}
		if messages[i].CreatedAt.IsZero() {
			messages[i].CreatedAt = now
		}
	}
}
