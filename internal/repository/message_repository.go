package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"chatlog-bot/internal/model"
)

const defaultRecentLimit = 5

// MessageRepository appends to and reads the per-user message log. All
// methods take the internal user row id, not the Telegram id.
type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Save appends one message row for userID. Outside a transactional scope it
// runs as its own statement, so the row stays durable even when a later step
// in the same handling cycle fails.
func (r *MessageRepository) Save(ctx context.Context, userID uint, messageID int, text string, chatID int64) error {
	msg := model.Message{
		UserID:      userID,
		MessageID:   messageID,
		Text:        text,
		ChatID:      chatID,
		MessageType: "text",
	}
	if err := r.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	return nil
}

// RecentByUser lists the user's latest messages, newest first, at most limit
// rows. An empty slice is returned when the user has no messages. The id
// tiebreak keeps the order well-defined for rows sharing a timestamp.
func (r *MessageRepository) RecentByUser(ctx context.Context, userID uint, limit int) ([]model.Message, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	var messages []model.Message
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *MessageRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Message{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
