package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sitekhata/internal/cache"
	"sitekhata/internal/model"
	"sitekhata/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notifier is the fire-and-forget sink approval transitions are pushed into.
type Notifier interface {
	NotifyJSON(v any)
}

// ApprovalEvent is the message broadcast on every resolution.
type ApprovalEvent struct {
	Event      string    `json:"event"` // approved, rejected, deleted
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	ResolvedBy string    `json:"resolved_by"`
	Remarks    string    `json:"remarks,omitempty"`
	At         time.Time `json:"at"`
}

// ResolveResult is what a resolution returns: the surviving entity, or a
// deletion marker when a PENDING_DELETE was confirmed.
type ResolveResult struct {
	Entity  model.StagedEntity
	Deleted bool
}

// ApprovalService collapses pending state back to approved, deleted, or
// rejected. Only admins resolve; each resolution is one storage transaction.
type ApprovalService struct {
	db       *gorm.DB
	txm      repository.TransactionManager
	registry *Registry
	notifier Notifier
	cache    cache.Cache
}

func NewApprovalService(db *gorm.DB, txm repository.TransactionManager, registry *Registry, notifier Notifier, c cache.Cache) *ApprovalService {
	return &ApprovalService{db: db, txm: txm, registry: registry, notifier: notifier, cache: c}
}

// Approve applies a pending change. expectedVersion, when given, guards
// against resolving a row that was re-staged after the approver loaded it.
func (s *ApprovalService) Approve(ctx context.Context, et EntityType, id uuid.UUID, actor Actor, expectedVersion *int) (ResolveResult, error) {
	desc, err := s.registry.Descriptor(et)
	if err != nil {
		return ResolveResult{}, err
	}
	if !actor.IsAdmin() {
		return ResolveResult{}, fmt.Errorf("%w: only admins resolve change requests", ErrInvalidState)
	}

	entity := desc.newEntity()
	result := ResolveResult{}
	var staleKeys []string
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		tx := repository.GetDB(txCtx, s.db)
		if err := s.load(tx, et, id, entity, expectedVersion); err != nil {
			return err
		}
		meta := entity.Meta()
		// The cached views the row dirtied before resolution; approving an
		// edit may move the row elsewhere (e.g. to another ledger).
		staleKeys = statementCacheKeys(entity)

		switch meta.ApprovalStatus {
		case model.StatusPendingCreate:
			meta.ApprovalStatus = model.StatusApproved
			meta.RequestMessage = ""
			meta.EverApproved = true
			if desc.onApproved != nil {
				if err := desc.onApproved(txCtx, tx, entity, actor.ID); err != nil {
					return err
				}
			}
			if err := tx.Save(entity).Error; err != nil {
				return fmt.Errorf("save %s: %w", et, err)
			}

		case model.StatusPendingEdit:
			if err := entity.ApplyPatch([]byte(meta.PendingPayload)); err != nil {
				return fmt.Errorf("%w: stored payload: %v", ErrValidation, err)
			}
			meta.PendingPayload = ""
			meta.ApprovalStatus = model.StatusApproved
			meta.RequestMessage = ""
			meta.EverApproved = true
			// An approved edit can carry the row into a state with side
			// effects of its own (a settlement needing its payout, a rate
			// snapshot); run the same hooks the create path runs.
			if desc.beforeStage != nil {
				if err := desc.beforeStage(txCtx, tx, entity, actor); err != nil {
					return err
				}
			}
			if err := entity.Validate(); err != nil {
				return fmt.Errorf("%w: %v", ErrValidation, err)
			}
			if desc.onApproved != nil {
				if err := desc.onApproved(txCtx, tx, entity, actor.ID); err != nil {
					return err
				}
			}
			if err := tx.Save(entity).Error; err != nil {
				return fmt.Errorf("save %s: %w", et, err)
			}

		case model.StatusPendingDelete:
			if desc.onDelete != nil {
				if err := desc.onDelete(txCtx, tx, entity); err != nil {
					return err
				}
			}
			if err := tx.Delete(entity).Error; err != nil {
				return fmt.Errorf("delete %s: %w", et, err)
			}
			result.Deleted = true

		default:
			return fmt.Errorf("%w: %s is not pending (status %s)", ErrInvalidState, et, meta.ApprovalStatus)
		}

		return writeAudit(tx, actor.ID, model.ActionApproveChange, et, id, map[string]any{
			"deleted": result.Deleted,
		})
	})
	if err != nil {
		return ResolveResult{}, err
	}

	result.Entity = entity
	if s.cache != nil && len(staleKeys) > 0 {
		_ = s.cache.Delete(ctx, staleKeys...)
	}
	s.afterResolve(ctx, "approved", et, entity, actor, "", result.Deleted)
	return result, nil
}

// Reject reverts the request: nothing changes except the status, the admin's
// remarks and the rejection counter. Field values and the pending payload are
// retained for audit and resubmission.
func (s *ApprovalService) Reject(ctx context.Context, et EntityType, id uuid.UUID, actor Actor, remarks string, expectedVersion *int) (model.StagedEntity, error) {
	desc, err := s.registry.Descriptor(et)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins resolve change requests", ErrInvalidState)
	}

	entity := desc.newEntity()
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		tx := repository.GetDB(txCtx, s.db)
		if err := s.load(tx, et, id, entity, expectedVersion); err != nil {
			return err
		}
		meta := entity.Meta()
		if !meta.IsPending() {
			return fmt.Errorf("%w: %s is not pending (status %s)", ErrInvalidState, et, meta.ApprovalStatus)
		}

		meta.ApprovalStatus = model.StatusRejected
		meta.Remarks = remarks
		meta.RejectionCount++
		if err := tx.Save(entity).Error; err != nil {
			return fmt.Errorf("save %s: %w", et, err)
		}
		return writeAudit(tx, actor.ID, model.ActionRejectChange, et, id, map[string]any{
			"remarks":         remarks,
			"rejection_count": meta.RejectionCount,
		})
	})
	if err != nil {
		return nil, err
	}

	s.afterResolve(ctx, "rejected", et, entity, actor, remarks, false)
	return entity, nil
}

// PendingReview is one raw row awaiting resolution, tagged with its type so
// the admin screen can route the decision back.
type PendingReview struct {
	EntityType EntityType         `json:"entity_type"`
	Entity     model.StagedEntity `json:"entity"`
}

// ListPending walks the whole routing table and returns every unresolved (or,
// with statuses, matching) row, raw — pending payloads included. This is the
// review projection; financial totals never read through here.
func (s *ApprovalService) ListPending(ctx context.Context, statuses []model.ApprovalStatus) ([]PendingReview, error) {
	if len(statuses) == 0 {
		statuses = []model.ApprovalStatus{
			model.StatusPendingCreate,
			model.StatusPendingEdit,
			model.StatusPendingDelete,
		}
	}

	var out []PendingReview
	db := s.db.WithContext(ctx)
	for _, et := range s.registry.Types() {
		desc, err := s.registry.Descriptor(et)
		if err != nil {
			return nil, err
		}
		rows, err := desc.listPending(db, statuses)
		if err != nil {
			return nil, fmt.Errorf("list pending %s: %w", et, err)
		}
		for _, row := range rows {
			out = append(out, PendingReview{EntityType: et, Entity: row})
		}
	}
	return out, nil
}

func (s *ApprovalService) load(tx *gorm.DB, et EntityType, id uuid.UUID, entity model.StagedEntity, expectedVersion *int) error {
	if err := tx.First(entity, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s %s", ErrNotFound, et, id)
		}
		return err
	}
	if expectedVersion != nil && *expectedVersion != entity.Meta().Version {
		return fmt.Errorf("%w: %s %s is at version %d, expected %d",
			ErrVersionConflict, et, id, entity.Meta().Version, *expectedVersion)
	}
	return nil
}

func (s *ApprovalService) afterResolve(ctx context.Context, event string, et EntityType, entity model.StagedEntity, actor Actor, remarks string, deleted bool) {
	if s.cache != nil {
		if keys := statementCacheKeys(entity); len(keys) > 0 {
			_ = s.cache.Delete(ctx, keys...)
		}
	}
	if s.notifier == nil {
		return
	}
	if deleted {
		event = "deleted"
	}
	s.notifier.NotifyJSON(ApprovalEvent{
		Event:      event,
		EntityType: string(et),
		EntityID:   entity.GetID().String(),
		ResolvedBy: actor.ID.String(),
		Remarks:    remarks,
		At:         time.Now(),
	})
}
