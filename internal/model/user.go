package model

import "time"

// User stores identity and profile data for a Telegram account.
// TelegramID is assigned by the platform and never changes once set;
// its unique index is what resolves duplicate-insert races on
// concurrent first contact.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	TelegramID   int64  `gorm:"uniqueIndex;not null"`
	Username     string `gorm:"size:50"`
	FirstName    string `gorm:"size:50"`
	LastName     string `gorm:"size:50"`
	LanguageCode string `gorm:"size:10"`
	IsActive     bool   `gorm:"default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Messages []Message     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Sessions []ChatSession `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}
