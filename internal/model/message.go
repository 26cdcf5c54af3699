package model

import "time"

// Message is one entry in the append-only message log. Rows are never
// updated or deleted after insert, except through the owner cascade.
type Message struct {
	ID          uint   `gorm:"primaryKey"`
	UserID      uint   `gorm:"index;not null"`
	MessageID   int    // Telegram message id, unique only within a chat
	Text        string `gorm:"type:text"`
	ChatID      int64
	MessageType string `gorm:"size:20;default:text"`
	CreatedAt   time.Time
}
