package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"chatlog-bot/internal/model"
)

// Identity carries the profile fields delivered with a Telegram update.
type Identity struct {
	TelegramID   int64
	Username     string
	FirstName    string
	LastName     string
	LanguageCode string
}

// UserStats is the aggregate returned for a stats request. MessageCount is
// computed at call time, never cached.
type UserStats struct {
	User         model.User
	MessageCount int64
	CreatedAt    time.Time
}

// UserRepository handles lookups and inserts for users.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetOrCreate finds the user row for id.TelegramID, inserting it on first
// contact. At most one insert happens per call. A concurrent first contact
// can race the insert; the unique index rejects the loser, which then
// re-reads the winner's row instead of failing.
func (r *UserRepository) GetOrCreate(ctx context.Context, id Identity) (*model.User, error) {
	var user model.User
	db := r.db.WithContext(ctx)
	err := db.Where("telegram_id = ?", id.TelegramID).First(&user).Error
	switch {
	case err == nil:
		return &user, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = model.User{
			TelegramID:   id.TelegramID,
			Username:     id.Username,
			FirstName:    id.FirstName,
			LastName:     id.LastName,
			LanguageCode: id.LanguageCode,
			IsActive:     true,
		}
		if err := db.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				var existing model.User
				if err := db.Where("telegram_id = ?", id.TelegramID).First(&existing).Error; err != nil {
					return nil, fmt.Errorf("reread user after duplicate insert: %w", err)
				}
				return &existing, nil
			}
			return nil, fmt.Errorf("create user: %w", err)
		}
		log.Info().Int64("telegram_id", id.TelegramID).Str("username", id.Username).Msg("created new user")
		return &user, nil
	default:
		return nil, fmt.Errorf("find user: %w", err)
	}
}

func (r *UserRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Stats aggregates the live message count for one user. The lookup is keyed
// by the Telegram id, not the internal row id, unlike the message
// operations; callers must pass the external identifier here.
func (r *UserRepository) Stats(ctx context.Context, telegramID int64) (*UserStats, error) {
	var user model.User
	db := r.db.WithContext(ctx)
	err := db.Where("telegram_id = ?", telegramID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	var count int64
	if err := db.Model(&model.Message{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}

	return &UserStats{User: user, MessageCount: count, CreatedAt: user.CreatedAt}, nil
}

// ListActive returns users eligible for digest delivery.
func (r *UserRepository) ListActive(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
