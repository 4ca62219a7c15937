package service

import (
	"encoding/json"
	"testing"
	"time"

	"sitekhata/internal/cache"
	"sitekhata/internal/database"
	"sitekhata/internal/model"
	"sitekhata/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	db         *gorm.DB
	registry   *Registry
	staging    *StagingService
	approvals  *ApprovalService
	ledgers    *LedgerService
	statements *StatementService
	hajari     *HajariService

	admin Actor
	user  Actor

	project model.Project
	ledger  model.Ledger
}

// newTestEnv wires the full service stack against an in-memory sqlite DB and
// seeds one project and one approved ledger.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}

	c := cache.NewMemory()
	txm := repository.NewTransactionManager(db)
	ledgers := NewLedgerService(db)
	registry := NewRegistry(ledgers)
	staging := NewStagingService(db, txm, registry, c)

	env := &testEnv{
		db:         db,
		registry:   registry,
		staging:    staging,
		approvals:  NewApprovalService(db, txm, registry, nil, c),
		ledgers:    ledgers,
		statements: NewStatementService(db, c),
		hajari:     NewHajariService(db, staging),
		admin:      Actor{ID: uuid.New(), Role: model.RoleAdmin},
		user:       Actor{ID: uuid.New(), Role: model.RoleUser},
	}

	env.project = model.Project{Name: "Riverside Villa"}
	if err := db.Create(&env.project).Error; err != nil {
		t.Fatalf("seed project: %v", err)
	}
	env.ledger = model.Ledger{
		Name:       "Cement",
		Approvable: model.Approvable{ApprovalStatus: model.StatusApproved},
	}
	if err := db.Create(&env.ledger).Error; err != nil {
		t.Fatalf("seed ledger: %v", err)
	}
	return env
}

func (env *testEnv) txPayload(t *testing.T, txType, amount string) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"type":         txType,
		"amount":       amount,
		"date":         time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
		"project_id":   env.project.ID,
		"ledger_id":    env.ledger.ID,
		"payment_mode": model.PayModeCash,
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return payload
}

func (env *testEnv) seedLabor(t *testing.T, rate string) model.Labor {
	t.Helper()
	labor := model.Labor{
		Name:      "Ramesh",
		Rate:      mustDecimal(t, rate),
		ProjectID: &env.project.ID,
		IsActive:  true,
	}
	if err := env.db.Create(&labor).Error; err != nil {
		t.Fatalf("seed labor: %v", err)
	}
	return labor
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}
