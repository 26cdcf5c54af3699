package model

import "time"

// ChatSession is a reserved slot for per-user conversational state.
// The table is migrated and cascade-linked to users, but no handler
// reads or writes it yet.
type ChatSession struct {
	ID          uint   `gorm:"primaryKey"`
	UserID      uint   `gorm:"index;not null"`
	SessionData string `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}
