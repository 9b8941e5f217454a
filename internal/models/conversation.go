package models

import "time"

// PlaceholderTitle is the title a conversation carries until its first real
// user message rewrites it.
const PlaceholderTitle = "New chat"

// Conversation is a logical chat thread owned by one user. ExternalID is the
// chatId exposed to clients; ID never leaves the process.
type Conversation struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	ExternalID string    `gorm:"size:36;not null;uniqueIndex"`
	Owner      string    `gorm:"size:128;not null;index:idx_owner_updated"`
	Title      string    `gorm:"size:128;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time `gorm:"index:idx_owner_updated"`

	Messages []Message `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}
