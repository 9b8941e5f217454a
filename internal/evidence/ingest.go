package evidence

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/zulandar/sensei/internal/logger"
	"github.com/zulandar/sensei/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultBatchSize is the number of log lines written per insert.
const DefaultBatchSize = 100

// TimestampLayout is the leading timestamp of an application log line.
const TimestampLayout = "2006-01-02 15:04:05.000"

var (
	txIDRe      = regexp.MustCompile(`TX_ID:\s*(TX\d+)`)
	uuidRe      = regexp.MustCompile(`UUID:\s*([a-f0-9-]{36})`)
	clientTxnRe = regexp.MustCompile(`CLIENT_TXN_ID:\s*(CLIENT_TXN_\d+)`)
	userIDRe    = regexp.MustCompile(`USER_ID:\s*(USER_\d+)`)
	levelRe     = regexp.MustCompile(`\[(INFO|DEBUG|ERROR|WARN|FATAL)\]`)
	bracketRe   = regexp.MustCompile(`\[(.*?)\]`)
	timestampRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d{3})`)
)

// ParseLine extracts the indexed fields of one raw log line.
func ParseLine(source string, lineNumber int, line string) models.LogLine {
	l := models.LogLine{Source: source, LineNumber: lineNumber, Line: line}
	if m := timestampRe.FindStringSubmatch(line); m != nil {
		if ts, err := time.Parse(TimestampLayout, m[1]); err == nil {
			l.Timestamp = &ts
		}
	}
	if m := levelRe.FindStringSubmatch(line); m != nil {
		l.Level = m[1]
	}
	// The service is the first bracketed token that is not the level.
	for _, m := range bracketRe.FindAllStringSubmatch(line, -1) {
		if m[1] != l.Level {
			l.Service = m[1]
			break
		}
	}
	if m := txIDRe.FindStringSubmatch(line); m != nil {
		l.TransactionID = m[1]
	}
	if m := uuidRe.FindStringSubmatch(line); m != nil {
		l.CorrelationID = m[1]
	}
	if m := clientTxnRe.FindStringSubmatch(line); m != nil {
		l.ClientTxnID = m[1]
	}
	if m := userIDRe.FindStringSubmatch(line); m != nil {
		l.UserID = m[1]
	}
	return l
}

// IngestStats summarises one ingest run.
type IngestStats struct {
	Lines        int
	Transactions int
}

// Ingester indexes application log files into the evidence store.
type Ingester struct {
	db        *gorm.DB
	batchSize int
}

// IngesterOpts holds parameters for creating an Ingester.
type IngesterOpts struct {
	DB        *gorm.DB
	BatchSize int // defaults to DefaultBatchSize
}

// NewIngester creates an Ingester.
func NewIngester(opts IngesterOpts) (*Ingester, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("evidence: ingester: db is required")
	}
	size := opts.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &Ingester{db: opts.DB, batchSize: size}, nil
}

// Ingest replaces the lines previously indexed for source with the contents
// of r, then records the correlation ids seen for each transaction.
func (in *Ingester) Ingest(ctx context.Context, source string, r io.Reader) (IngestStats, error) {
	var stats IngestStats
	db := in.db.WithContext(ctx)
	if err := db.Where("source = ?", source).Delete(&models.LogLine{}).Error; err != nil {
		return stats, fmt.Errorf("evidence: ingest %s: clear previous lines: %w", source, err)
	}

	txns := map[string]*models.Transaction{}
	var order []string
	batch := make([]models.LogLine, 0, in.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := db.Create(&batch).Error; err != nil {
			return err
		}
		stats.Lines += len(batch)
		logger.Debug("indexed batch", "source", source, "lines", stats.Lines)
		batch = batch[:0]
		return nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		l := ParseLine(source, lineNumber, scanner.Text())
		if l.TransactionID != "" {
			t, ok := txns[l.TransactionID]
			if !ok {
				t = &models.Transaction{TransactionID: l.TransactionID}
				txns[l.TransactionID] = t
				order = append(order, l.TransactionID)
			}
			if t.CorrelationID == "" {
				t.CorrelationID = l.CorrelationID
			}
			if t.ServiceID == "" {
				t.ServiceID = l.Service
			}
			if t.ClientTxnID == "" {
				t.ClientTxnID = l.ClientTxnID
			}
			if t.UserID == "" {
				t.UserID = l.UserID
			}
		}
		batch = append(batch, l)
		if len(batch) >= in.batchSize {
			if err := flush(); err != nil {
				return stats, fmt.Errorf("evidence: ingest %s: write batch: %w", source, err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("evidence: ingest %s: read: %w", source, err)
	}
	if err := flush(); err != nil {
		return stats, fmt.Errorf("evidence: ingest %s: write batch: %w", source, err)
	}

	for _, id := range order {
		if err := in.upsertTransaction(db, txns[id]); err != nil {
			return stats, fmt.Errorf("evidence: ingest %s: transaction %s: %w", source, id, err)
		}
		stats.Transactions++
	}
	logger.Info("ingested log file", "source", source, "lines", stats.Lines, "transactions", stats.Transactions)
	return stats, nil
}

// upsertTransaction creates the record or fills in identifiers it lacks.
// Status and amount are owned by the transaction system and never touched.
func (in *Ingester) upsertTransaction(db *gorm.DB, t *models.Transaction) error {
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "transaction_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"correlation_id": gorm.Expr("CASE WHEN transactions.correlation_id = '' OR transactions.correlation_id IS NULL THEN ? ELSE transactions.correlation_id END", t.CorrelationID),
			"service_id":     gorm.Expr("CASE WHEN transactions.service_id = '' OR transactions.service_id IS NULL THEN ? ELSE transactions.service_id END", t.ServiceID),
			"client_txn_id":  gorm.Expr("CASE WHEN transactions.client_txn_id = '' OR transactions.client_txn_id IS NULL THEN ? ELSE transactions.client_txn_id END", t.ClientTxnID),
			"user_id":        gorm.Expr("CASE WHEN transactions.user_id = '' OR transactions.user_id IS NULL THEN ? ELSE transactions.user_id END", t.UserID),
		}),
	}).Create(t).Error
}
