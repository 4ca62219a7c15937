package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"sitekhata/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func hajariRow(labor model.Labor, projectID uuid.UUID, day int, status string) model.Hajari {
	return model.Hajari{
		Approvable: model.Approvable{ApprovalStatus: model.StatusApproved},
		LaborID:    labor.ID,
		ProjectID:  projectID,
		Date:       time.Date(2025, 6, day, 0, 0, 0, 0, time.UTC),
		Status:     status,
		Rate:       labor.Rate,
	}
}

func TestDailyPay(t *testing.T) {
	rate := decimal.NewFromInt(800)
	cases := []struct {
		name     string
		status   string
		overtime string
		want     string
	}{
		{"present", model.HajariPresent, "0", "800"},
		{"present with overtime", model.HajariPresent, "2", "1100"}, // 800 + (800/8)*2*1.5
		{"half day", model.HajariHalfDay, "0", "400"},
		{"absent", model.HajariAbsent, "0", "0"},
		{"absent with overtime", model.HajariAbsent, "2", "300"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := &model.Hajari{
				Status:        tc.status,
				Rate:          rate,
				OvertimeHours: decimal.RequireFromString(tc.overtime),
			}
			if got := DailyPay(h); !got.Equal(decimal.RequireFromString(tc.want)) {
				t.Errorf("DailyPay = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestDailyPaySettlementRowsCarryNoWage(t *testing.T) {
	h := &model.Hajari{
		Status: model.HajariSettlement,
		Rate:   decimal.NewFromInt(800),
		Upad:   decimal.NewFromInt(2000),
	}
	if got := DailyPay(h); !got.IsZero() {
		t.Errorf("DailyPay on settlement row = %s, want 0", got)
	}
}

func TestMonthlySummary(t *testing.T) {
	env := newTestEnv(t)
	labor := env.seedLabor(t, "1000")

	rows := []model.Hajari{
		hajariRow(labor, env.project.ID, 2, model.HajariPresent),
		hajariRow(labor, env.project.ID, 3, model.HajariPresent),
		hajariRow(labor, env.project.ID, 4, model.HajariPresent),
		hajariRow(labor, env.project.ID, 5, model.HajariPresent),
		hajariRow(labor, env.project.ID, 6, model.HajariPresent),
		hajariRow(labor, env.project.ID, 7, model.HajariHalfDay),
		hajariRow(labor, env.project.ID, 8, model.HajariAbsent),
	}
	rows[1].Upad = decimal.NewFromInt(800)

	settled := hajariRow(labor, env.project.ID, 15, model.HajariSettlement)
	settled.Upad = decimal.NewFromInt(2000)
	rows = append(rows, settled)

	// Previous month's attendance must not leak in.
	stale := hajariRow(labor, env.project.ID, 10, model.HajariPresent)
	stale.Date = time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC)
	rows = append(rows, stale)

	// A submission still awaiting review carries no wage.
	pending := hajariRow(labor, env.project.ID, 9, model.HajariPresent)
	pending.ApprovalStatus = model.StatusPendingCreate
	rows = append(rows, pending)

	for i := range rows {
		if err := env.db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("seed hajari: %v", err)
		}
	}

	sum, err := env.hajari.MonthlySummary(context.Background(), labor.ID, time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("MonthlySummary: %v", err)
	}

	if sum.Month != "2025-06" {
		t.Errorf("month = %s", sum.Month)
	}
	if sum.PresentDays != 5 || sum.HalfDays != 1 || sum.AbsentDays != 1 {
		t.Errorf("days = %d/%d/%d, want 5/1/1", sum.PresentDays, sum.HalfDays, sum.AbsentDays)
	}
	if want := decimal.NewFromInt(5500); !sum.TotalWage.Equal(want) {
		t.Errorf("total wage = %s, want %s", sum.TotalWage, want)
	}
	if want := decimal.NewFromInt(800); !sum.TotalUpad.Equal(want) {
		t.Errorf("total upad = %s, want %s", sum.TotalUpad, want)
	}
	if want := decimal.NewFromInt(4700); !sum.FinalAmount.Equal(want) {
		t.Errorf("final amount = %s, want %s", sum.FinalAmount, want)
	}
	if want := decimal.NewFromInt(2000); !sum.TotalSettled.Equal(want) {
		t.Errorf("total settled = %s, want %s", sum.TotalSettled, want)
	}
	if want := decimal.NewFromInt(2700); !sum.Payable.Equal(want) {
		t.Errorf("payable = %s, want %s", sum.Payable, want)
	}
	if sum.HasPendingSettlement {
		t.Error("no settlement request in flight, flag set anyway")
	}
}

func TestUserSettlementRequestStaysPending(t *testing.T) {
	env := newTestEnv(t)
	labor := env.seedLabor(t, "1000")
	ctx := context.Background()

	for day := 2; day <= 6; day++ {
		row := hajariRow(labor, env.project.ID, day, model.HajariPresent)
		if err := env.db.Create(&row).Error; err != nil {
			t.Fatalf("seed hajari: %v", err)
		}
	}

	date := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)
	entity, err := env.hajari.RequestSettlement(ctx, labor.ID, env.project.ID, date, decimal.NewFromInt(3000), env.user, "month end")
	if err != nil {
		t.Fatalf("RequestSettlement: %v", err)
	}

	row := entity.(*model.Hajari)
	if row.Status != model.HajariPendingSettlement {
		t.Errorf("status = %s, want PENDING_SETTLEMENT", row.Status)
	}
	if row.ApprovalStatus != model.StatusPendingCreate {
		t.Errorf("approval status = %s, want PENDING_CREATE", row.ApprovalStatus)
	}

	// No cash has moved: payable unchanged, flag raised.
	sum, err := env.hajari.MonthlySummary(ctx, labor.ID, date)
	if err != nil {
		t.Fatalf("MonthlySummary: %v", err)
	}
	if want := decimal.NewFromInt(5000); !sum.Payable.Equal(want) {
		t.Errorf("payable = %s, want %s", sum.Payable, want)
	}
	if !sum.HasPendingSettlement {
		t.Error("pending settlement not flagged")
	}

	// Second request for the same worker and month is refused while the
	// first is unresolved.
	_, err = env.hajari.RequestSettlement(ctx, labor.ID, env.project.ID, date, decimal.NewFromInt(100), env.user, "")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("duplicate request: err = %v, want ErrValidation", err)
	}
}

func TestApproveSettlementCreatesPayout(t *testing.T) {
	env := newTestEnv(t)
	labor := env.seedLabor(t, "1000")
	ctx := context.Background()

	for day := 2; day <= 6; day++ {
		row := hajariRow(labor, env.project.ID, day, model.HajariPresent)
		if err := env.db.Create(&row).Error; err != nil {
			t.Fatalf("seed hajari: %v", err)
		}
	}

	date := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)
	entity, err := env.hajari.RequestSettlement(ctx, labor.ID, env.project.ID, date, decimal.NewFromInt(3000), env.user, "")
	if err != nil {
		t.Fatalf("RequestSettlement: %v", err)
	}

	result, err := env.approvals.Approve(ctx, EntityHajari, entity.GetID(), env.admin, nil)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}

	row := result.Entity.(*model.Hajari)
	if row.Status != model.HajariSettlement {
		t.Errorf("status = %s, want SETTLEMENT", row.Status)
	}
	if row.ApprovalStatus != model.StatusApproved {
		t.Errorf("approval status = %s", row.ApprovalStatus)
	}

	var payout model.Transaction
	if err := env.db.First(&payout, "hajari_settlement_id = ?", row.ID).Error; err != nil {
		t.Fatalf("payout transaction missing: %v", err)
	}
	if payout.Type != model.TxTypeExpense {
		t.Errorf("payout type = %s", payout.Type)
	}
	if !payout.Amount.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("payout amount = %s", payout.Amount)
	}
	if !payout.IsEffective() {
		t.Error("payout transaction not effective")
	}

	var ledger model.Ledger
	if err := env.db.First(&ledger, "id = ?", payout.LedgerID).Error; err != nil {
		t.Fatalf("payout ledger missing: %v", err)
	}
	if ledger.Name != model.ReservedLedgerHajari || !ledger.Reserved {
		t.Errorf("payout ledger = %q reserved=%v", ledger.Name, ledger.Reserved)
	}

	// Confirmed settlement now reduces the payable balance.
	sum, err := env.hajari.MonthlySummary(ctx, labor.ID, date)
	if err != nil {
		t.Fatalf("MonthlySummary: %v", err)
	}
	if want := decimal.NewFromInt(2000); !sum.Payable.Equal(want) {
		t.Errorf("payable = %s, want %s", sum.Payable, want)
	}
	if sum.HasPendingSettlement {
		t.Error("flag still set after resolution")
	}
}

func TestDeletingPayoutLeavesSettlementRow(t *testing.T) {
	env := newTestEnv(t)
	labor := env.seedLabor(t, "1000")
	ctx := context.Background()

	row := hajariRow(labor, env.project.ID, 2, model.HajariPresent)
	if err := env.db.Create(&row).Error; err != nil {
		t.Fatalf("seed hajari: %v", err)
	}

	date := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)
	entity, err := env.hajari.RequestSettlement(ctx, labor.ID, env.project.ID, date, decimal.NewFromInt(1000), env.admin, "")
	if err != nil {
		t.Fatalf("RequestSettlement: %v", err)
	}

	var payout model.Transaction
	if err := env.db.First(&payout, "hajari_settlement_id = ?", entity.GetID()).Error; err != nil {
		t.Fatalf("payout missing: %v", err)
	}

	// Removing the payout transaction must not cascade into attendance.
	if _, _, err := env.staging.Delete(ctx, EntityTransaction, payout.ID, env.admin, ""); err != nil {
		t.Fatalf("delete payout: %v", err)
	}

	var settlement model.Hajari
	if err := env.db.First(&settlement, "id = ?", entity.GetID()).Error; err != nil {
		t.Fatalf("settlement row gone: %v", err)
	}
	if settlement.Status != model.HajariSettlement {
		t.Errorf("settlement status = %s", settlement.Status)
	}
}

func TestAdminSettlementConfirmsImmediately(t *testing.T) {
	env := newTestEnv(t)
	labor := env.seedLabor(t, "1000")
	ctx := context.Background()

	row := hajariRow(labor, env.project.ID, 2, model.HajariPresent)
	if err := env.db.Create(&row).Error; err != nil {
		t.Fatalf("seed hajari: %v", err)
	}

	date := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)
	entity, err := env.hajari.RequestSettlement(ctx, labor.ID, env.project.ID, date, decimal.NewFromInt(1000), env.admin, "")
	if err != nil {
		t.Fatalf("RequestSettlement: %v", err)
	}

	settled := entity.(*model.Hajari)
	if settled.Status != model.HajariSettlement {
		t.Errorf("status = %s, want SETTLEMENT", settled.Status)
	}
	if settled.ApprovalStatus != model.StatusApproved {
		t.Errorf("approval status = %s", settled.ApprovalStatus)
	}

	var count int64
	env.db.Model(&model.Transaction{}).Where("hajari_settlement_id = ?", settled.ID).Count(&count)
	if count != 1 {
		t.Errorf("payout transactions = %d, want 1", count)
	}
}

func TestSettlementExceedingPayableFails(t *testing.T) {
	env := newTestEnv(t)
	labor := env.seedLabor(t, "1000")

	row := hajariRow(labor, env.project.ID, 2, model.HajariPresent)
	if err := env.db.Create(&row).Error; err != nil {
		t.Fatalf("seed hajari: %v", err)
	}

	date := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)
	_, err := env.hajari.RequestSettlement(context.Background(), labor.ID, env.project.ID, date, decimal.NewFromInt(1500), env.user, "")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestAttendanceStagingSnapshotsRate(t *testing.T) {
	env := newTestEnv(t)
	labor := env.seedLabor(t, "650")
	ctx := context.Background()

	payload := []byte(`{"labor_id":"` + labor.ID.String() + `","project_id":"` + env.project.ID.String() + `",` +
		`"date":"2025-06-02T00:00:00Z","status":"PRESENT"}`)
	entity, err := env.staging.Create(ctx, EntityHajari, payload, env.user, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	row := entity.(*model.Hajari)
	if !row.Rate.Equal(decimal.RequireFromString("650")) {
		t.Errorf("rate = %s, want 650 (snapshot)", row.Rate)
	}

	// Raising the worker's rate must not rewrite history.
	env.db.Model(&model.Labor{}).Where("id = ?", labor.ID).Update("rate", decimal.NewFromInt(900))

	var stored model.Hajari
	env.db.First(&stored, "id = ?", row.ID)
	if !stored.Rate.Equal(decimal.RequireFromString("650")) {
		t.Errorf("stored rate = %s, want 650", stored.Rate)
	}
}

func TestEditedRowApprovedAsSettlementCreatesPayout(t *testing.T) {
	env := newTestEnv(t)
	labor := env.seedLabor(t, "1000")
	ctx := context.Background()

	for day := 2; day <= 6; day++ {
		row := hajariRow(labor, env.project.ID, day, model.HajariPresent)
		if err := env.db.Create(&row).Error; err != nil {
			t.Fatalf("seed hajari: %v", err)
		}
	}
	target := hajariRow(labor, env.project.ID, 20, model.HajariPresent)
	if err := env.db.Create(&target).Error; err != nil {
		t.Fatalf("seed hajari: %v", err)
	}

	// A settlement reached through an edit must carry the same side
	// effects as one created outright.
	edited, err := env.staging.Edit(ctx, EntityHajari, target.ID,
		[]byte(`{"status":"SETTLEMENT","upad":"2000"}`), env.user, "payout via edit")
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if edited.Meta().ApprovalStatus != model.StatusPendingEdit {
		t.Fatalf("approval status = %s, want PENDING_EDIT", edited.Meta().ApprovalStatus)
	}

	result, err := env.approvals.Approve(ctx, EntityHajari, target.ID, env.admin, nil)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	row := result.Entity.(*model.Hajari)
	if row.Status != model.HajariSettlement {
		t.Errorf("status = %s, want SETTLEMENT", row.Status)
	}

	var payout model.Transaction
	if err := env.db.First(&payout, "hajari_settlement_id = ?", row.ID).Error; err != nil {
		t.Fatalf("payout transaction missing: %v", err)
	}
	if !payout.Amount.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("payout amount = %s, want 2000", payout.Amount)
	}

	var audits int64
	env.db.Model(&model.AuditLog{}).
		Where("action = ?", model.ActionCreateSettlementPayout).
		Where("entity_id = ?", payout.ID.String()).
		Count(&audits)
	if audits != 1 {
		t.Errorf("payout audit entries = %d, want 1", audits)
	}
}

func TestEditToSettlementBlockedWhileRequestPending(t *testing.T) {
	env := newTestEnv(t)
	labor := env.seedLabor(t, "1000")
	ctx := context.Background()

	for day := 2; day <= 6; day++ {
		row := hajariRow(labor, env.project.ID, day, model.HajariPresent)
		if err := env.db.Create(&row).Error; err != nil {
			t.Fatalf("seed hajari: %v", err)
		}
	}
	target := hajariRow(labor, env.project.ID, 20, model.HajariPresent)
	if err := env.db.Create(&target).Error; err != nil {
		t.Fatalf("seed hajari: %v", err)
	}

	date := time.Date(2025, 6, 21, 0, 0, 0, 0, time.UTC)
	if _, err := env.hajari.RequestSettlement(ctx, labor.ID, env.project.ID, date, decimal.NewFromInt(3000), env.user, ""); err != nil {
		t.Fatalf("RequestSettlement: %v", err)
	}

	_, err := env.staging.Edit(ctx, EntityHajari, target.ID,
		[]byte(`{"status":"SETTLEMENT","upad":"500"}`), env.user, "")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("edit with request in flight: err = %v, want ErrValidation", err)
	}
}
