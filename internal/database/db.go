package database

import (
	"log"

	"sitekhata/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}

// Migrate runs the schema migration for every model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Project{},
		&model.Ledger{},
		&model.FinancialAccount{},
		&model.Transaction{},
		&model.Record{},
		&model.RecordSettlement{},
		&model.JournalEntry{},
		&model.Task{},
		&model.Photo{},
		&model.Document{},
		&model.Material{},
		&model.MaterialLedgerEntry{},
		&model.Labor{},
		&model.Hajari{},
		&model.AuditLog{},
	)
}
