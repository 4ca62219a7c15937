package service

import (
	"context"
	"errors"
	"testing"

	"sitekhata/internal/model"

	"github.com/shopspring/decimal"
)

func TestUserCreateStaysPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	entity, err := env.staging.Create(ctx, EntityTransaction, env.txPayload(t, model.TxTypeExpense, "200"), env.user, "cement purchase")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	tx := entity.(*model.Transaction)
	if tx.ApprovalStatus != model.StatusPendingCreate {
		t.Errorf("status = %s, want PENDING_CREATE", tx.ApprovalStatus)
	}
	if tx.CreatedBy == nil || *tx.CreatedBy != env.user.ID {
		t.Errorf("created_by not stamped with actor")
	}
	if tx.RequestMessage != "cement purchase" {
		t.Errorf("request message = %q", tx.RequestMessage)
	}
	if tx.IsEffective() {
		t.Error("pending create must not be effective")
	}
}

func TestAdminCreateAppliesImmediately(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	entity, err := env.staging.Create(ctx, EntityTransaction, env.txPayload(t, model.TxTypeIncome, "500"), env.admin, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if entity.Meta().ApprovalStatus != model.StatusApproved {
		t.Errorf("status = %s, want APPROVED", entity.Meta().ApprovalStatus)
	}
}

func TestCreateIgnoresClientEnvelope(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// A client claiming APPROVED status must still land in the queue.
	payload := []byte(`{"type":"EXPENSE","amount":"100","date":"2025-06-10T00:00:00Z",` +
		`"project_id":"` + env.project.ID.String() + `","ledger_id":"` + env.ledger.ID.String() + `",` +
		`"payment_mode":"CASH","approval_status":"APPROVED","version":99}`)
	entity, err := env.staging.Create(ctx, EntityTransaction, payload, env.user, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if entity.Meta().ApprovalStatus != model.StatusPendingCreate {
		t.Errorf("envelope spoofing got through: status = %s", entity.Meta().ApprovalStatus)
	}
	if entity.Meta().Version != 0 {
		t.Errorf("version = %d, want 0", entity.Meta().Version)
	}
}

func TestCreateValidationFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.staging.Create(ctx, EntityTransaction, env.txPayload(t, "TRANSFER", "100"), env.user, "")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestUserEditKeepsVisibleValues(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.staging.Create(ctx, EntityTransaction, env.txPayload(t, model.TxTypeExpense, "200"), env.admin, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id := created.GetID()

	edited, err := env.staging.Edit(ctx, EntityTransaction, id, []byte(`{"amount":"900"}`), env.user, "price correction")
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}

	tx := edited.(*model.Transaction)
	if tx.ApprovalStatus != model.StatusPendingEdit {
		t.Errorf("status = %s, want PENDING_EDIT", tx.ApprovalStatus)
	}
	if !tx.Amount.Equal(decimal.NewFromInt(200)) {
		t.Errorf("visible amount changed before approval: %s", tx.Amount)
	}
	if tx.PendingPayload != `{"amount":"900"}` {
		t.Errorf("pending payload = %q", tx.PendingPayload)
	}
	if tx.Version != 1 {
		t.Errorf("version = %d, want 1", tx.Version)
	}
}

func TestAdminEditAppliesInPlace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, _ := env.staging.Create(ctx, EntityTransaction, env.txPayload(t, model.TxTypeExpense, "200"), env.admin, "")
	edited, err := env.staging.Edit(ctx, EntityTransaction, created.GetID(), []byte(`{"amount":"900"}`), env.admin, "")
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}

	tx := edited.(*model.Transaction)
	if tx.ApprovalStatus != model.StatusApproved {
		t.Errorf("status = %s, want APPROVED", tx.ApprovalStatus)
	}
	if !tx.Amount.Equal(decimal.NewFromInt(900)) {
		t.Errorf("amount = %s, want 900", tx.Amount)
	}
	if tx.PendingPayload != "" {
		t.Errorf("pending payload not cleared: %q", tx.PendingPayload)
	}
}

func TestEditRejectsInvalidPatchEagerly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, _ := env.staging.Create(ctx, EntityTransaction, env.txPayload(t, model.TxTypeExpense, "200"), env.admin, "")

	// The proposal would leave the row invalid; staging must refuse now, not
	// at approval time.
	_, err := env.staging.Edit(ctx, EntityTransaction, created.GetID(), []byte(`{"amount":"-5"}`), env.user, "")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}

	_, err = env.staging.Edit(ctx, EntityTransaction, created.GetID(), []byte(`{"bogus":true}`), env.user, "")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown field: err = %v, want ErrValidation", err)
	}
}

func TestUserDeleteStagesMarker(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, _ := env.staging.Create(ctx, EntityTransaction, env.txPayload(t, model.TxTypeExpense, "200"), env.admin, "")
	entity, deleted, err := env.staging.Delete(ctx, EntityTransaction, created.GetID(), env.user, "duplicate entry")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if deleted {
		t.Error("user delete must not remove the row")
	}
	if entity.Meta().ApprovalStatus != model.StatusPendingDelete {
		t.Errorf("status = %s, want PENDING_DELETE", entity.Meta().ApprovalStatus)
	}

	// A pending delete still counts toward totals.
	if !entity.Meta().IsEffective() {
		t.Error("pending delete must stay effective")
	}
}

func TestAdminDeleteRemovesRow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, _ := env.staging.Create(ctx, EntityTransaction, env.txPayload(t, model.TxTypeExpense, "200"), env.admin, "")
	_, deleted, err := env.staging.Delete(ctx, EntityTransaction, created.GetID(), env.admin, "")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !deleted {
		t.Error("admin delete must remove the row")
	}

	var count int64
	env.db.Model(&model.Transaction{}).Where("id = ?", created.GetID()).Count(&count)
	if count != 0 {
		t.Errorf("row survived admin delete")
	}
}

func TestStagingUnknownEntityType(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.staging.Create(context.Background(), EntityType("invoice"), []byte(`{}`), env.admin, "")
	if !errors.Is(err, ErrUnknownEntityType) {
		t.Fatalf("err = %v, want ErrUnknownEntityType", err)
	}
}

func TestLedgerNameUniquenessCaseInsensitive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.staging.Create(ctx, EntityLedger, []byte(`{"name":"CEMENT"}`), env.admin, "")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("duplicate ledger name: err = %v, want ErrValidation", err)
	}
}

func TestUserEditOfPendingCreateStaysPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.staging.Create(ctx, EntityTransaction, env.txPayload(t, model.TxTypeExpense, "200"), env.user, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	edited, err := env.staging.Edit(ctx, EntityTransaction, created.GetID(), []byte(`{"amount":"250"}`), env.user, "fixed price")
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}

	tx := edited.(*model.Transaction)
	if tx.ApprovalStatus != model.StatusPendingCreate {
		t.Errorf("status = %s, want PENDING_CREATE (never approved)", tx.ApprovalStatus)
	}
	if tx.IsEffective() {
		t.Error("revised submission leaked into effective rows")
	}
	if !tx.Amount.Equal(decimal.NewFromInt(250)) {
		t.Errorf("proposal amount = %s, want 250", tx.Amount)
	}
	if tx.PendingPayload != "" {
		t.Errorf("pending payload = %q, want none for an in-place revision", tx.PendingPayload)
	}

	// Nothing approved yet, so nothing counts.
	totals, err := env.statements.ProjectTotals(ctx, env.project.ID)
	if err != nil {
		t.Fatalf("ProjectTotals: %v", err)
	}
	if !totals.TotalExpense.IsZero() {
		t.Errorf("unapproved expense counted: %s", totals.TotalExpense)
	}

	// Approving the revision lands the revised amount.
	result, err := env.approvals.Approve(ctx, EntityTransaction, created.GetID(), env.admin, nil)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if got := result.Entity.(*model.Transaction).Amount; !got.Equal(decimal.NewFromInt(250)) {
		t.Errorf("approved amount = %s, want 250", got)
	}
}

func TestUserEditOfRejectedCreateResubmits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, _ := env.staging.Create(ctx, EntityTransaction, env.txPayload(t, model.TxTypeExpense, "200"), env.user, "")
	if _, err := env.approvals.Reject(ctx, EntityTransaction, created.GetID(), env.admin, "too high", nil); err != nil {
		t.Fatalf("Reject: %v", err)
	}

	edited, err := env.staging.Edit(ctx, EntityTransaction, created.GetID(), []byte(`{"amount":"150"}`), env.user, "second try")
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}

	tx := edited.(*model.Transaction)
	if tx.ApprovalStatus != model.StatusPendingCreate {
		t.Errorf("status = %s, want PENDING_CREATE (rejected submission resubmitted)", tx.ApprovalStatus)
	}
	if tx.IsEffective() {
		t.Error("resubmitted rejected creation leaked into effective rows")
	}
	if tx.RejectionCount != 1 {
		t.Errorf("rejection count = %d, want 1", tx.RejectionCount)
	}
}

func TestUserDeleteWithdrawsNeverApprovedRow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Still awaiting first approval.
	pending, _ := env.staging.Create(ctx, EntityTransaction, env.txPayload(t, model.TxTypeExpense, "200"), env.user, "")
	_, deleted, err := env.staging.Delete(ctx, EntityTransaction, pending.GetID(), env.user, "")
	if err != nil {
		t.Fatalf("Delete pending-create: %v", err)
	}
	if !deleted {
		t.Error("withdrawing a pending submission must remove it")
	}

	// Rejected and never approved.
	rejected, _ := env.staging.Create(ctx, EntityTransaction, env.txPayload(t, model.TxTypeExpense, "300"), env.user, "")
	env.approvals.Reject(ctx, EntityTransaction, rejected.GetID(), env.admin, "no", nil)
	_, deleted, err = env.staging.Delete(ctx, EntityTransaction, rejected.GetID(), env.user, "")
	if err != nil {
		t.Fatalf("Delete rejected: %v", err)
	}
	if !deleted {
		t.Error("withdrawing a rejected submission must remove it")
	}

	var count int64
	env.db.Model(&model.Transaction{}).Count(&count)
	if count != 0 {
		t.Errorf("withdrawn rows survived: %d", count)
	}

	totals, err := env.statements.ProjectTotals(ctx, env.project.ID)
	if err != nil {
		t.Fatalf("ProjectTotals: %v", err)
	}
	if !totals.TotalExpense.IsZero() {
		t.Errorf("never-approved amounts counted: %s", totals.TotalExpense)
	}
}

func TestUserDeleteOfRejectedEditStagesMarker(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Approved row whose later edit was rejected: the approved values still
	// exist, so a delete must go through review like any other.
	created, _ := env.staging.Create(ctx, EntityTransaction, env.txPayload(t, model.TxTypeExpense, "200"), env.admin, "")
	env.staging.Edit(ctx, EntityTransaction, created.GetID(), []byte(`{"amount":"900"}`), env.user, "")
	if _, err := env.approvals.Reject(ctx, EntityTransaction, created.GetID(), env.admin, "no", nil); err != nil {
		t.Fatalf("Reject: %v", err)
	}

	entity, deleted, err := env.staging.Delete(ctx, EntityTransaction, created.GetID(), env.user, "")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if deleted {
		t.Error("row with approved history removed without review")
	}
	if entity.Meta().ApprovalStatus != model.StatusPendingDelete {
		t.Errorf("status = %s, want PENDING_DELETE", entity.Meta().ApprovalStatus)
	}
}
