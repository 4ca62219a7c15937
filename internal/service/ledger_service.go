package service

import (
	"context"
	"errors"
	"fmt"

	"sitekhata/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LedgerService owns reserved-ledger provisioning. Regular ledger CRUD flows
// through the staging pipeline like any other entity; reserved ledgers are
// system-created on first use and never deleted.
type LedgerService struct {
	db *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{db: db}
}

// EnsureReserved returns the id of the reserved ledger with the given name,
// creating it inside the caller's transaction if it does not exist yet. The
// "Petty Cash" book is per-user; "Hajari" is shared. Created rows are
// immediately APPROVED — provisioning never enters the review queue.
func (s *LedgerService) EnsureReserved(ctx context.Context, tx *gorm.DB, name string, actorID uuid.UUID) (uuid.UUID, error) {
	if !model.IsReservedLedgerName(name) {
		return uuid.Nil, fmt.Errorf("%w: %q is not a reserved ledger name", ErrProvisioning, name)
	}

	query := tx.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name)
	if name == model.ReservedLedgerPettyCash {
		query = query.Where("owner_id = ?", actorID)
	} else {
		query = query.Where("owner_id IS NULL")
	}

	var existing model.Ledger
	err := query.First(&existing).Error
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, fmt.Errorf("%w: lookup %q: %v", ErrProvisioning, name, err)
	}

	ledger := model.Ledger{
		Name:     name,
		Reserved: true,
		Approvable: model.Approvable{
			ApprovalStatus: model.StatusApproved,
			EverApproved:   true,
			CreatedBy:      &actorID,
		},
	}
	if name == model.ReservedLedgerPettyCash {
		ledger.OwnerID = &actorID
	}
	if err := tx.WithContext(ctx).Create(&ledger).Error; err != nil {
		return uuid.Nil, fmt.Errorf("%w: create %q: %v", ErrProvisioning, name, err)
	}

	audit := model.AuditLog{
		UserID:     &actorID,
		Action:     model.ActionProvisionReservedLedger,
		EntityType: string(EntityLedger),
		EntityID:   ledger.ID.String(),
		Details:    fmt.Sprintf(`{"name":%q}`, name),
	}
	if err := tx.WithContext(ctx).Create(&audit).Error; err != nil {
		return uuid.Nil, fmt.Errorf("%w: audit %q: %v", ErrProvisioning, name, err)
	}
	return ledger.ID, nil
}
