package db

import (
	"fmt"

	"github.com/zulandar/sensei/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns every GORM model Sensei persists.
func AllModels() []interface{} {
	return []interface{}{
		&models.Conversation{},
		&models.Message{},
		&models.Transaction{},
		&models.LogLine{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedTransactions upserts transaction records keyed by transaction id.
// Existing rows keep their status and amount unless the seed provides them.
func SeedTransactions(db *gorm.DB, txns []models.Transaction) error {
	for i := range txns {
		t := txns[i]
		if t.TransactionID == "" {
			return fmt.Errorf("db: seed transaction %d: transaction_id is required", i)
		}
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "transaction_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"correlation_id", "service_id", "client_txn_id", "user_id", "status", "amount", "updated_at"}),
		}).Create(&t)
		if result.Error != nil {
			return fmt.Errorf("db: seed transaction %q: %w", t.TransactionID, result.Error)
		}
	}
	return nil
}
