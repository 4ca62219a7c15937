package service

import (
	"context"
	"errors"
	"fmt"

	"sitekhata/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EntityType keys the routing table. These are the wire names used by the
// approval endpoints; adding a new staged entity requires registering it in
// NewRegistry or resolution will refuse it.
type EntityType string

const (
	EntityTransaction   EntityType = "transaction"
	EntityRecord        EntityType = "recordable"
	EntityLedger        EntityType = "ledger"
	EntityTask          EntityType = "task"
	EntityPhoto         EntityType = "photo"
	EntityDocument      EntityType = "document"
	EntityHajari        EntityType = "hajari"
	EntityMaterial      EntityType = "material"
	EntityMaterialEntry EntityType = "materialledgerentry"
)

// ListFilter narrows generic entity listings.
type ListFilter struct {
	ProjectID *uuid.UUID
	Statuses  []model.ApprovalStatus
	Limit     int
	Offset    int
}

// entityDescriptor is one row of the routing table: how to construct, stage,
// and resolve a concrete entity type.
type entityDescriptor struct {
	// newEntity returns a fresh zero row for unmarshalling.
	newEntity func() model.StagedEntity
	// projectScoped enables the project_id list filter.
	projectScoped bool
	// beforeStage validates references and provisions reserved ledgers. Runs
	// inside the staging transaction, before Validate.
	beforeStage func(ctx context.Context, tx *gorm.DB, e model.StagedEntity, actor Actor) error
	// onApproved runs when the entity becomes APPROVED through the create
	// path (admin direct create or approval of a PENDING_CREATE). Used for
	// composite side effects such as the settlement payout transaction.
	onApproved func(ctx context.Context, tx *gorm.DB, e model.StagedEntity, actorID uuid.UUID) error
	// onDelete removes strictly-owned children before the row itself goes.
	onDelete func(ctx context.Context, tx *gorm.DB, e model.StagedEntity) error
	// list fetches rows with the shared filter semantics.
	list func(tx *gorm.DB, f ListFilter) ([]model.StagedEntity, int64, error)
	// listPending fetches rows awaiting resolution for the review screen.
	listPending func(tx *gorm.DB, statuses []model.ApprovalStatus) ([]model.StagedEntity, error)
}

// Registry is the fixed entity-type → collection routing table.
type Registry struct {
	ledgers     *LedgerService
	descriptors map[EntityType]*entityDescriptor
	order       []EntityType
}

type stagedPtr[T any] interface {
	*T
	model.StagedEntity
}

func newDescriptor[T any, PT stagedPtr[T]](projectScoped bool) *entityDescriptor {
	return &entityDescriptor{
		newEntity:     func() model.StagedEntity { var row T; return PT(&row) },
		projectScoped: projectScoped,
		list: func(tx *gorm.DB, f ListFilter) ([]model.StagedEntity, int64, error) {
			return listEntities[T, PT](tx, f, projectScoped)
		},
		listPending: func(tx *gorm.DB, statuses []model.ApprovalStatus) ([]model.StagedEntity, error) {
			rows, _, err := listEntities[T, PT](tx, ListFilter{Statuses: statuses}, projectScoped)
			return rows, err
		},
	}
}

func listEntities[T any, PT stagedPtr[T]](tx *gorm.DB, f ListFilter, projectScoped bool) ([]model.StagedEntity, int64, error) {
	build := func() *gorm.DB {
		q := tx.Model(new(T))
		if projectScoped && f.ProjectID != nil {
			q = q.Where("project_id = ?", *f.ProjectID)
		}
		if len(f.Statuses) > 0 {
			q = q.Where("approval_status IN ?", f.Statuses)
		}
		return q
	}

	var total int64
	if err := build().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := build().Order("created_at DESC")
	if f.Limit > 0 {
		q = q.Offset(f.Offset).Limit(f.Limit)
	}
	var rows []T
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	out := make([]model.StagedEntity, 0, len(rows))
	for i := range rows {
		out = append(out, PT(&rows[i]))
	}
	return out, total, nil
}

// NewRegistry builds the exhaustive routing table. The ledger service backs
// reserved-ledger provisioning and the settlement payout hook.
func NewRegistry(ledgers *LedgerService) *Registry {
	r := &Registry{
		ledgers:     ledgers,
		descriptors: make(map[EntityType]*entityDescriptor),
	}

	tx := newDescriptor[model.Transaction, *model.Transaction](true)
	tx.beforeStage = r.provisionTransactionLedger
	r.register(EntityTransaction, tx)

	rec := newDescriptor[model.Record, *model.Record](true)
	rec.beforeStage = r.provisionRecordLedger
	rec.onDelete = func(_ context.Context, tx *gorm.DB, e model.StagedEntity) error {
		return tx.Where("record_id = ?", e.GetID()).Delete(&model.RecordSettlement{}).Error
	}
	r.register(EntityRecord, rec)

	led := newDescriptor[model.Ledger, *model.Ledger](false)
	led.beforeStage = r.checkLedgerName
	led.onDelete = func(_ context.Context, tx *gorm.DB, e model.StagedEntity) error {
		if err := tx.Where("ledger_id = ?", e.GetID()).Delete(&model.Transaction{}).Error; err != nil {
			return err
		}
		return tx.Where("ledger_id = ?", e.GetID()).Delete(&model.Record{}).Error
	}
	r.register(EntityLedger, led)

	r.register(EntityTask, newDescriptor[model.Task, *model.Task](true))
	r.register(EntityPhoto, newDescriptor[model.Photo, *model.Photo](true))
	r.register(EntityDocument, newDescriptor[model.Document, *model.Document](true))

	haj := newDescriptor[model.Hajari, *model.Hajari](true)
	haj.beforeStage = r.checkHajariStaging
	haj.onApproved = r.createSettlementPayout
	r.register(EntityHajari, haj)

	mat := newDescriptor[model.Material, *model.Material](false)
	mat.onDelete = func(_ context.Context, tx *gorm.DB, e model.StagedEntity) error {
		return tx.Where("material_id = ?", e.GetID()).Delete(&model.MaterialLedgerEntry{}).Error
	}
	r.register(EntityMaterial, mat)

	ent := newDescriptor[model.MaterialLedgerEntry, *model.MaterialLedgerEntry](true)
	ent.beforeStage = r.checkMaterialRef
	r.register(EntityMaterialEntry, ent)

	return r
}

func (r *Registry) register(et EntityType, d *entityDescriptor) {
	r.descriptors[et] = d
	r.order = append(r.order, et)
}

// Descriptor resolves an entity type or fails with ErrUnknownEntityType. An
// unknown type here is a configuration error, never a silent no-op.
func (r *Registry) Descriptor(et EntityType) (*entityDescriptor, error) {
	d, ok := r.descriptors[et]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntityType, et)
	}
	return d, nil
}

// Types returns the registered entity types in registration order.
func (r *Registry) Types() []EntityType {
	return r.order
}

// ParseEntityType validates a wire name against the table.
func (r *Registry) ParseEntityType(s string) (EntityType, error) {
	et := EntityType(s)
	if _, ok := r.descriptors[et]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownEntityType, s)
	}
	return et, nil
}

// --- Hooks ---

func (r *Registry) provisionTransactionLedger(ctx context.Context, tx *gorm.DB, e model.StagedEntity, actor Actor) error {
	t := e.(*model.Transaction)
	if t.LedgerID != uuid.Nil || !model.IsReservedLedgerName(t.LedgerName) {
		return nil
	}
	id, err := r.ledgers.EnsureReserved(ctx, tx, t.LedgerName, actor.ID)
	if err != nil {
		return err
	}
	t.LedgerID = id
	return nil
}

func (r *Registry) provisionRecordLedger(ctx context.Context, tx *gorm.DB, e model.StagedEntity, actor Actor) error {
	rec := e.(*model.Record)
	if rec.LedgerID != uuid.Nil || !model.IsReservedLedgerName(rec.LedgerName) {
		return nil
	}
	id, err := r.ledgers.EnsureReserved(ctx, tx, rec.LedgerName, actor.ID)
	if err != nil {
		return err
	}
	rec.LedgerID = id
	return nil
}

// checkLedgerName enforces case-insensitive name uniqueness within the owner
// scope.
func (r *Registry) checkLedgerName(_ context.Context, tx *gorm.DB, e model.StagedEntity, _ Actor) error {
	l := e.(*model.Ledger)
	q := tx.Model(&model.Ledger{}).
		Where("LOWER(name) = LOWER(?)", l.Name).
		Where("id <> ?", l.ID)
	if l.OwnerID != nil {
		q = q.Where("owner_id = ?", *l.OwnerID)
	} else {
		q = q.Where("owner_id IS NULL")
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: ledger name %q is already in use", ErrValidation, l.Name)
	}
	return nil
}

// checkHajariStaging snapshots the labor rate, downgrades non-admin
// settlement rows to settlement requests, and blocks a second in-flight
// request for the same worker and month.
func (r *Registry) checkHajariStaging(_ context.Context, tx *gorm.DB, e model.StagedEntity, actor Actor) error {
	h := e.(*model.Hajari)

	if h.Status == model.HajariSettlement && !actor.IsAdmin() {
		// Users may request a payout, never move cash.
		h.Status = model.HajariPendingSettlement
	}

	if h.Rate.IsZero() && !h.IsSettlementRow() {
		var labor model.Labor
		if err := tx.First(&labor, "id = ?", h.LaborID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: labor %s not found", ErrValidation, h.LaborID)
			}
			return err
		}
		h.Rate = labor.Rate
	}

	if h.Status == model.HajariPendingSettlement {
		start, end := monthWindow(h.Date)
		var count int64
		err := tx.Model(&model.Hajari{}).
			Where("labor_id = ?", h.LaborID).
			Where("id <> ?", h.ID).
			Where("date >= ? AND date < ?", start, end).
			Where("status = ?", model.HajariPendingSettlement).
			Where("approval_status <> ?", model.StatusRejected).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: a settlement request is already pending for this worker this month", ErrValidation)
		}
	}
	return nil
}

// createSettlementPayout converts a confirmed settlement row into a payroll
// expense transaction. The status flip and the payout must land together; a
// failure of either half aborts the surrounding transaction.
func (r *Registry) createSettlementPayout(ctx context.Context, tx *gorm.DB, e model.StagedEntity, actorID uuid.UUID) error {
	h, ok := e.(*model.Hajari)
	if !ok || !h.IsSettlementRow() {
		return nil
	}
	if h.Status == model.HajariPendingSettlement {
		h.Status = model.HajariSettlement
	}

	// The payout may already exist if an admin created the row directly
	// through the settlement endpoint.
	var existing int64
	if err := tx.Model(&model.Transaction{}).
		Where("hajari_settlement_id = ?", h.ID).
		Count(&existing).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrAtomicComposite, err)
	}
	if existing > 0 {
		return nil
	}

	ledgerID, err := r.ledgers.EnsureReserved(ctx, tx, model.ReservedLedgerHajari, actorID)
	if err != nil {
		return err
	}

	payout := model.Transaction{
		Approvable: model.Approvable{
			ApprovalStatus: model.StatusApproved,
			EverApproved:   true,
			CreatedBy:      &actorID,
			SubmittedBy:    &actorID,
		},
		Type:               model.TxTypeExpense,
		Amount:             h.Upad,
		Date:               h.Date,
		ProjectID:          h.ProjectID,
		LedgerID:           ledgerID,
		PaymentMode:        model.PayModeCash,
		HajariSettlementID: &h.ID,
		Description:        "Hajari settlement payout",
	}
	if err := tx.Create(&payout).Error; err != nil {
		return fmt.Errorf("%w: settlement payout: %v", ErrAtomicComposite, err)
	}
	return writeAudit(tx, actorID, model.ActionCreateSettlementPayout, EntityTransaction, payout.ID, map[string]any{
		"hajari_id": h.ID,
		"amount":    h.Upad,
	})
}

func (r *Registry) checkMaterialRef(_ context.Context, tx *gorm.DB, e model.StagedEntity, _ Actor) error {
	entry := e.(*model.MaterialLedgerEntry)
	var count int64
	if err := tx.Model(&model.Material{}).Where("id = ?", entry.MaterialID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: material %s not found", ErrValidation, entry.MaterialID)
	}
	return nil
}
