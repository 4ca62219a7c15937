package service

import (
	"context"
	"errors"
	"testing"

	"sitekhata/internal/model"
)

func TestEnsureReservedIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.ledgers.EnsureReserved(ctx, env.db, model.ReservedLedgerHajari, env.admin.ID)
	if err != nil {
		t.Fatalf("EnsureReserved: %v", err)
	}
	second, err := env.ledgers.EnsureReserved(ctx, env.db, model.ReservedLedgerHajari, env.user.ID)
	if err != nil {
		t.Fatalf("EnsureReserved again: %v", err)
	}
	if first != second {
		t.Errorf("shared ledger provisioned twice: %s vs %s", first, second)
	}

	var ledger model.Ledger
	if err := env.db.First(&ledger, "id = ?", first).Error; err != nil {
		t.Fatalf("load ledger: %v", err)
	}
	if !ledger.Reserved {
		t.Error("ledger not marked reserved")
	}
	if ledger.OwnerID != nil {
		t.Error("payroll ledger must be shared, got an owner")
	}
	if ledger.ApprovalStatus != model.StatusApproved {
		t.Errorf("status = %s, provisioning must not enter review", ledger.ApprovalStatus)
	}

	var count int64
	env.db.Model(&model.AuditLog{}).Where("action = ?", model.ActionProvisionReservedLedger).Count(&count)
	if count != 1 {
		t.Errorf("provisioning audit rows = %d, want 1", count)
	}
}

func TestEnsureReservedPettyCashIsPerUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	adminBook, err := env.ledgers.EnsureReserved(ctx, env.db, model.ReservedLedgerPettyCash, env.admin.ID)
	if err != nil {
		t.Fatalf("EnsureReserved admin: %v", err)
	}
	userBook, err := env.ledgers.EnsureReserved(ctx, env.db, model.ReservedLedgerPettyCash, env.user.ID)
	if err != nil {
		t.Fatalf("EnsureReserved user: %v", err)
	}
	if adminBook == userBook {
		t.Fatal("petty cash books must be per-user")
	}

	again, err := env.ledgers.EnsureReserved(ctx, env.db, model.ReservedLedgerPettyCash, env.user.ID)
	if err != nil {
		t.Fatalf("EnsureReserved repeat: %v", err)
	}
	if again != userBook {
		t.Errorf("repeat provisioning returned %s, want %s", again, userBook)
	}
}

func TestEnsureReservedRejectsOrdinaryNames(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.ledgers.EnsureReserved(context.Background(), env.db, "Cement", env.admin.ID)
	if !errors.Is(err, ErrProvisioning) {
		t.Fatalf("err = %v, want ErrProvisioning", err)
	}
}

func TestTransactionProvisionsReservedLedgerByName(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	payload := []byte(`{"type":"EXPENSE","amount":"120","date":"2025-06-10T00:00:00Z",` +
		`"project_id":"` + env.project.ID.String() + `","payment_mode":"CASH",` +
		`"ledger_name":"Petty Cash"}`)
	entity, err := env.staging.Create(ctx, EntityTransaction, payload, env.admin, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	tx := entity.(*model.Transaction)
	var ledger model.Ledger
	if err := env.db.First(&ledger, "id = ?", tx.LedgerID).Error; err != nil {
		t.Fatalf("provisioned ledger missing: %v", err)
	}
	if ledger.Name != model.ReservedLedgerPettyCash || !ledger.Reserved {
		t.Errorf("ledger = %q reserved=%v", ledger.Name, ledger.Reserved)
	}
	if ledger.OwnerID == nil || *ledger.OwnerID != env.admin.ID {
		t.Error("petty cash book not scoped to the acting user")
	}
}
