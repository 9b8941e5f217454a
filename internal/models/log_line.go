package models

import "time"

// LogLine is one indexed application log line. LineNumber is the position in
// the source file and defines the order evidence is presented in.
type LogLine struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	Source        string `gorm:"size:255;index:idx_source_line"`
	LineNumber    int    `gorm:"not null;index:idx_source_line"`
	TransactionID string `gorm:"size:64;index"`
	CorrelationID string `gorm:"size:64;index"`
	ClientTxnID   string `gorm:"size:64"`
	UserID        string `gorm:"size:64"`
	Level         string `gorm:"size:8"`
	Service       string `gorm:"size:64"`
	Timestamp     *time.Time
	Line          string `gorm:"type:text;not null"`
}
