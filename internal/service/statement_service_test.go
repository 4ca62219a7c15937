package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"sitekhata/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func seedAccount(t *testing.T, env *testEnv, opening string) model.FinancialAccount {
	t.Helper()
	account := model.FinancialAccount{
		Type:           model.AccountCash,
		Name:           "Site Cash Box",
		OpeningBalance: mustDecimal(t, opening),
	}
	if err := env.db.Create(&account).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return account
}

func (env *testEnv) accountTxPayload(t *testing.T, txType, amount string, accountID uuid.UUID, day int) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"type":                 txType,
		"amount":               amount,
		"date":                 time.Date(2025, 6, day, 0, 0, 0, 0, time.UTC),
		"project_id":           env.project.ID,
		"ledger_id":            env.ledger.ID,
		"payment_mode":         model.PayModeCash,
		"financial_account_id": accountID,
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return payload
}

func TestAccountStatementSkipsNonEffectiveRows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := seedAccount(t, env, "1000")

	if _, err := env.staging.Create(ctx, EntityTransaction, env.accountTxPayload(t, model.TxTypeIncome, "500", account.ID, 5), env.admin, ""); err != nil {
		t.Fatalf("seed income: %v", err)
	}
	// Awaiting approval: must not move the balance.
	if _, err := env.staging.Create(ctx, EntityTransaction, env.accountTxPayload(t, model.TxTypeExpense, "200", account.ID, 6), env.user, ""); err != nil {
		t.Fatalf("stage expense: %v", err)
	}

	stmt, err := env.statements.AccountStatement(ctx, account.ID)
	if err != nil {
		t.Fatalf("AccountStatement: %v", err)
	}

	if len(stmt.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(stmt.Rows))
	}
	if want := decimal.NewFromInt(1500); !stmt.ClosingBalance.Equal(want) {
		t.Errorf("closing balance = %s, want %s", stmt.ClosingBalance, want)
	}
	if !stmt.Rows[0].Balance.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("running balance = %s, want 1500", stmt.Rows[0].Balance)
	}

	// Read-side aggregation: recomputing with no intervening writes yields
	// the same result.
	again, err := env.statements.AccountStatement(ctx, account.ID)
	if err != nil {
		t.Fatalf("AccountStatement repeat: %v", err)
	}
	if !again.ClosingBalance.Equal(stmt.ClosingBalance) || len(again.Rows) != len(stmt.Rows) {
		t.Errorf("repeat statement differs: closing %s vs %s, rows %d vs %d",
			again.ClosingBalance, stmt.ClosingBalance, len(again.Rows), len(stmt.Rows))
	}
}

func TestAccountStatementMergesJournals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := seedAccount(t, env, "0")
	other := model.FinancialAccount{Type: model.AccountBank, Name: "HDFC Current"}
	if err := env.db.Create(&other).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}

	if _, err := env.staging.Create(ctx, EntityTransaction, env.accountTxPayload(t, model.TxTypeIncome, "1000", account.ID, 3), env.admin, ""); err != nil {
		t.Fatalf("seed income: %v", err)
	}

	// Move 400 from the cash box to the bank: credit cash, debit bank.
	entry := model.JournalEntry{
		Amount:          decimal.NewFromInt(400),
		Date:            time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC),
		Narration:       "deposit to bank",
		DebitMode:       model.JournalModeBank,
		DebitAccountID:  &other.ID,
		CreditMode:      model.JournalModeCash,
		CreditAccountID: &account.ID,
	}
	if err := env.db.Create(&entry).Error; err != nil {
		t.Fatalf("seed journal: %v", err)
	}

	cashStmt, err := env.statements.AccountStatement(ctx, account.ID)
	if err != nil {
		t.Fatalf("AccountStatement cash: %v", err)
	}
	if want := decimal.NewFromInt(600); !cashStmt.ClosingBalance.Equal(want) {
		t.Errorf("cash closing = %s, want %s", cashStmt.ClosingBalance, want)
	}
	if len(cashStmt.Rows) != 2 {
		t.Fatalf("cash rows = %d, want 2", len(cashStmt.Rows))
	}
	last := cashStmt.Rows[1]
	if last.Source != "journal" || last.Kind != model.TxTypeExpense {
		t.Errorf("credited journal row = %s/%s, want journal/EXPENSE", last.Source, last.Kind)
	}

	bankStmt, err := env.statements.AccountStatement(ctx, other.ID)
	if err != nil {
		t.Fatalf("AccountStatement bank: %v", err)
	}
	if want := decimal.NewFromInt(400); !bankStmt.ClosingBalance.Equal(want) {
		t.Errorf("bank closing = %s, want %s", bankStmt.ClosingBalance, want)
	}
	if bankStmt.Rows[0].Kind != model.TxTypeIncome {
		t.Errorf("debited journal row kind = %s, want INCOME", bankStmt.Rows[0].Kind)
	}
}

func TestAccountStatementSortsByDateStable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := seedAccount(t, env, "0")

	// Insert out of order; statement rows come back by date.
	for _, day := range []int{9, 3, 6} {
		if _, err := env.staging.Create(ctx, EntityTransaction, env.accountTxPayload(t, model.TxTypeIncome, "100", account.ID, day), env.admin, ""); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	stmt, err := env.statements.AccountStatement(ctx, account.ID)
	if err != nil {
		t.Fatalf("AccountStatement: %v", err)
	}
	if len(stmt.Rows) != 3 {
		t.Fatalf("rows = %d", len(stmt.Rows))
	}
	for i := 1; i < len(stmt.Rows); i++ {
		if stmt.Rows[i].Date.Before(stmt.Rows[i-1].Date) {
			t.Errorf("rows out of order: %v after %v", stmt.Rows[i].Date, stmt.Rows[i-1].Date)
		}
	}
}

func TestLedgerStatementScoping(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	otherProject := model.Project{Name: "Hillside Duplex"}
	if err := env.db.Create(&otherProject).Error; err != nil {
		t.Fatalf("seed project: %v", err)
	}

	mk := func(projectID uuid.UUID, amount string) {
		payload, err := json.Marshal(map[string]any{
			"type":         model.TxTypeExpense,
			"amount":       amount,
			"date":         time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
			"project_id":   projectID,
			"ledger_id":    env.ledger.ID,
			"payment_mode": model.PayModeCash,
		})
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if _, err := env.staging.Create(ctx, EntityTransaction, payload, env.admin, ""); err != nil {
			t.Fatalf("seed transaction: %v", err)
		}
	}
	mk(env.project.ID, "300")
	mk(otherProject.ID, "700")

	// Journals carry no project dimension.
	journalLedger := env.ledger.ID
	entry := model.JournalEntry{
		Amount:        decimal.NewFromInt(50),
		Date:          time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC),
		DebitMode:     model.JournalModeLedger,
		DebitLedgerID: &journalLedger,
		CreditMode:    model.JournalModeCash,
	}
	if err := env.db.Create(&entry).Error; err != nil {
		t.Fatalf("seed journal: %v", err)
	}

	full, err := env.statements.LedgerStatement(ctx, env.ledger.ID, nil, nil)
	if err != nil {
		t.Fatalf("LedgerStatement: %v", err)
	}
	if want := decimal.NewFromInt(1000); !full.TotalExpense.Equal(want) {
		t.Errorf("unscoped expense = %s, want %s", full.TotalExpense, want)
	}
	if want := decimal.NewFromInt(50); !full.TotalIncome.Equal(want) {
		t.Errorf("unscoped income = %s, want %s (journal debit)", full.TotalIncome, want)
	}

	scoped, err := env.statements.LedgerStatement(ctx, env.ledger.ID, &env.project.ID, nil)
	if err != nil {
		t.Fatalf("LedgerStatement scoped: %v", err)
	}
	if want := decimal.NewFromInt(300); !scoped.TotalExpense.Equal(want) {
		t.Errorf("scoped expense = %s, want %s", scoped.TotalExpense, want)
	}
	if !scoped.TotalIncome.IsZero() {
		t.Errorf("scoped income = %s, want 0 (journals excluded under project filter)", scoped.TotalIncome)
	}
}

func TestLedgerStatementOutstandingRecords(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	payload := []byte(`{"type":"PAYABLE","amount":"1000","due_date":"2025-07-01T00:00:00Z",` +
		`"project_id":"` + env.project.ID.String() + `","ledger_id":"` + env.ledger.ID.String() + `",` +
		`"payment_mode":"CASH","paid_amount":"250"}`)
	if _, err := env.staging.Create(ctx, EntityRecord, payload, env.admin, ""); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	stmt, err := env.statements.LedgerStatement(ctx, env.ledger.ID, nil, nil)
	if err != nil {
		t.Fatalf("LedgerStatement: %v", err)
	}
	if want := decimal.NewFromInt(750); !stmt.TotalPayable.Equal(want) {
		t.Errorf("payable = %s, want %s (outstanding portion only)", stmt.TotalPayable, want)
	}
	if !stmt.TotalReceivable.IsZero() {
		t.Errorf("receivable = %s, want 0", stmt.TotalReceivable)
	}
}

func TestProjectTotals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.staging.Create(ctx, EntityTransaction, env.txPayload(t, model.TxTypeIncome, "5000"), env.admin, ""); err != nil {
		t.Fatalf("seed income: %v", err)
	}
	if _, err := env.staging.Create(ctx, EntityTransaction, env.txPayload(t, model.TxTypeExpense, "1200"), env.admin, ""); err != nil {
		t.Fatalf("seed expense: %v", err)
	}
	// Pending rows don't count.
	if _, err := env.staging.Create(ctx, EntityTransaction, env.txPayload(t, model.TxTypeExpense, "999"), env.user, ""); err != nil {
		t.Fatalf("stage expense: %v", err)
	}

	totals, err := env.statements.ProjectTotals(ctx, env.project.ID)
	if err != nil {
		t.Fatalf("ProjectTotals: %v", err)
	}
	if want := decimal.NewFromInt(5000); !totals.TotalIncome.Equal(want) {
		t.Errorf("income = %s, want %s", totals.TotalIncome, want)
	}
	if want := decimal.NewFromInt(1200); !totals.TotalExpense.Equal(want) {
		t.Errorf("expense = %s, want %s", totals.TotalExpense, want)
	}
	if want := decimal.NewFromInt(3800); !totals.Net.Equal(want) {
		t.Errorf("net = %s, want %s", totals.Net, want)
	}
}

func TestProjectTotalsNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.statements.ProjectTotals(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestStatementCacheInvalidatedOnApproval(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := seedAccount(t, env, "0")

	if _, err := env.staging.Create(ctx, EntityTransaction, env.accountTxPayload(t, model.TxTypeIncome, "500", account.ID, 3), env.admin, ""); err != nil {
		t.Fatalf("seed income: %v", err)
	}

	first, err := env.statements.AccountStatement(ctx, account.ID)
	if err != nil {
		t.Fatalf("AccountStatement: %v", err)
	}
	if want := decimal.NewFromInt(500); !first.ClosingBalance.Equal(want) {
		t.Fatalf("closing = %s, want %s", first.ClosingBalance, want)
	}

	staged, err := env.staging.Create(ctx, EntityTransaction, env.accountTxPayload(t, model.TxTypeExpense, "200", account.ID, 4), env.user, "")
	if err != nil {
		t.Fatalf("stage expense: %v", err)
	}
	if _, err := env.approvals.Approve(ctx, EntityTransaction, staged.GetID(), env.admin, nil); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	second, err := env.statements.AccountStatement(ctx, account.ID)
	if err != nil {
		t.Fatalf("AccountStatement: %v", err)
	}
	if want := decimal.NewFromInt(300); !second.ClosingBalance.Equal(want) {
		t.Errorf("closing after approval = %s, want %s (stale cache?)", second.ClosingBalance, want)
	}
}

func TestApprovedEditMovingLedgerRefreshesOldStatement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	other := model.Ledger{
		Name:       "Steel",
		Approvable: model.Approvable{ApprovalStatus: model.StatusApproved},
	}
	if err := env.db.Create(&other).Error; err != nil {
		t.Fatalf("seed ledger: %v", err)
	}

	staged, err := env.staging.Create(ctx, EntityTransaction, env.txPayload(t, model.TxTypeExpense, "400"), env.admin, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Warm both caches while the row still belongs to the first ledger.
	before, err := env.statements.LedgerStatement(ctx, env.ledger.ID, nil, nil)
	if err != nil {
		t.Fatalf("LedgerStatement: %v", err)
	}
	if len(before.Rows) != 1 {
		t.Fatalf("rows before move = %d, want 1", len(before.Rows))
	}
	if _, err := env.statements.LedgerStatement(ctx, other.ID, nil, nil); err != nil {
		t.Fatalf("LedgerStatement: %v", err)
	}

	patch := []byte(`{"ledger_id":"` + other.ID.String() + `"}`)
	if _, err := env.staging.Edit(ctx, EntityTransaction, staged.GetID(), patch, env.user, "wrong ledger"); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if _, err := env.approvals.Approve(ctx, EntityTransaction, staged.GetID(), env.admin, nil); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	// The ledger the row left must not keep serving the stale statement.
	old, err := env.statements.LedgerStatement(ctx, env.ledger.ID, nil, nil)
	if err != nil {
		t.Fatalf("LedgerStatement: %v", err)
	}
	if len(old.Rows) != 0 {
		t.Errorf("rows on old ledger after move = %d, want 0", len(old.Rows))
	}

	moved, err := env.statements.LedgerStatement(ctx, other.ID, nil, nil)
	if err != nil {
		t.Fatalf("LedgerStatement: %v", err)
	}
	if len(moved.Rows) != 1 {
		t.Errorf("rows on new ledger = %d, want 1", len(moved.Rows))
	}
}
