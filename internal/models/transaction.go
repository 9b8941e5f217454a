package models

import "time"

// Transaction is the record the evidence store keeps for a payment
// transaction. CorrelationID and ServiceID widen log search when nothing is
// indexed under the transaction id itself.
type Transaction struct {
	ID            uint    `gorm:"primaryKey;autoIncrement"`
	TransactionID string  `gorm:"size:64;not null;uniqueIndex"`
	CorrelationID string  `gorm:"size:64;index"`
	ServiceID     string  `gorm:"size:64"`
	ClientTxnID   string  `gorm:"size:64"`
	UserID        string  `gorm:"size:64;index"`
	Status        string  `gorm:"size:16;index"` // SUCCESS, FAILED, PENDING
	Amount        float64 `gorm:"type:decimal(14,2)"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
