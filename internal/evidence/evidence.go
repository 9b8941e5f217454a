// Package evidence reads and indexes the facts an analysis is grounded on:
// application log lines and transaction records.
package evidence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zulandar/sensei/internal/models"
	"gorm.io/gorm"
)

// Defaults for GormStore.
const (
	DefaultPageSize = 100
	DefaultMaxLines = 20000
)

// Transaction statuses.
const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
	StatusPending = "PENDING"
)

// Query filters transaction records. Zero fields do not filter.
type Query struct {
	Status        string
	TransactionID string
	Limit         int
}

// Store is the evidence store the agents consult.
type Store interface {
	// FindLogsByTransactionID returns the raw log lines indexed under id, in
	// line order.
	FindLogsByTransactionID(ctx context.Context, id string) ([]string, error)
	// FindLogsByCorrelationID returns the lines carrying the correlation id.
	FindLogsByCorrelationID(ctx context.Context, id string) ([]string, error)
	// FindTransactionRecord returns (nil, nil) when the transaction is unknown.
	FindTransactionRecord(ctx context.Context, id string) (*models.Transaction, error)
	// QueryTransactions returns matching records, newest first.
	QueryTransactions(ctx context.Context, q Query) ([]models.Transaction, error)
}

// GormStore implements Store on the log_lines and transactions tables.
type GormStore struct {
	db       *gorm.DB
	pageSize int
	maxLines int
}

// GormStoreOpts holds parameters for creating a GormStore.
type GormStoreOpts struct {
	DB       *gorm.DB
	PageSize int // defaults to DefaultPageSize
	MaxLines int // defaults to DefaultMaxLines
}

// NewGormStore creates a GormStore.
func NewGormStore(opts GormStoreOpts) (*GormStore, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("evidence: store: db is required")
	}
	s := &GormStore{db: opts.DB, pageSize: opts.PageSize, maxLines: opts.MaxLines}
	if s.pageSize <= 0 {
		s.pageSize = DefaultPageSize
	}
	if s.maxLines <= 0 {
		s.maxLines = DefaultMaxLines
	}
	return s, nil
}

func (s *GormStore) FindLogsByTransactionID(ctx context.Context, id string) ([]string, error) {
	lines, err := s.pagedLines(ctx, "transaction_id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("evidence: logs for transaction %s: %w", id, err)
	}
	return lines, nil
}

func (s *GormStore) FindLogsByCorrelationID(ctx context.Context, id string) ([]string, error) {
	lines, err := s.pagedLines(ctx, "correlation_id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("evidence: logs for correlation id %s: %w", id, err)
	}
	return lines, nil
}

// pagedLines reads matching lines page by page until a short page or the
// line cap is reached.
func (s *GormStore) pagedLines(ctx context.Context, where string, arg string) ([]string, error) {
	lines := []string{}
	if strings.TrimSpace(arg) == "" {
		return lines, nil
	}
	for offset := 0; offset < s.maxLines; offset += s.pageSize {
		var page []models.LogLine
		err := s.db.WithContext(ctx).
			Where(where, arg).
			Order("source, line_number, id").
			Offset(offset).Limit(s.pageSize).
			Find(&page).Error
		if err != nil {
			return nil, err
		}
		for _, l := range page {
			lines = append(lines, l.Line)
		}
		if len(page) < s.pageSize {
			break
		}
	}
	if len(lines) > s.maxLines {
		lines = lines[:s.maxLines]
	}
	return lines, nil
}

func (s *GormStore) FindTransactionRecord(ctx context.Context, id string) (*models.Transaction, error) {
	var txn models.Transaction
	err := s.db.WithContext(ctx).Where("transaction_id = ?", id).First(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("evidence: transaction %s: %w", id, err)
	}
	return &txn, nil
}

func (s *GormStore) QueryTransactions(ctx context.Context, q Query) ([]models.Transaction, error) {
	db := s.db.WithContext(ctx).Model(&models.Transaction{})
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}
	if q.TransactionID != "" {
		db = db.Where("transaction_id = ?", q.TransactionID)
	}
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}
	var txns []models.Transaction
	if err := db.Order("created_at DESC, id DESC").Find(&txns).Error; err != nil {
		return nil, fmt.Errorf("evidence: query transactions: %w", err)
	}
	return txns, nil
}
