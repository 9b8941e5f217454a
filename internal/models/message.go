package models

import "time"

// Message roles.
const (
	RoleUser      = "USER"
	RoleAssistant = "ASSISTANT"
)

// Message content types.
const (
	ContentText = "TEXT"
	ContentHTML = "HTML"
)

// Message is a single chat message. TransactionID records the transaction
// the turn was about so follow-up questions can resolve it again.
type Message struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"`
	ConversationID uint      `gorm:"not null;index:idx_conv_created"`
	Role           string    `gorm:"size:16;not null"`
	Content        string    `gorm:"type:mediumtext;not null"`
	ContentType    string    `gorm:"size:8;not null;default:TEXT"`
	TransactionID  string    `gorm:"size:64;index"`
	Category       string    `gorm:"size:32"`
	CreatedAt      time.Time `gorm:"index:idx_conv_created"`
}
