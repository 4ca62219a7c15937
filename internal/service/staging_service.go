package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"sitekhata/internal/cache"
	"sitekhata/internal/model"
	"sitekhata/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StagingService is the single write path for approval-gated entities. Admin
// mutations apply immediately; everything else is parked in a pending state
// until an admin resolves it. Staging an entity that is already pending is
// deliberately not blocked — resolution carries the version stamp that makes
// concurrent requests detectable.
type StagingService struct {
	db       *gorm.DB
	txm      repository.TransactionManager
	registry *Registry
	cache    cache.Cache
}

func NewStagingService(db *gorm.DB, txm repository.TransactionManager, registry *Registry, c cache.Cache) *StagingService {
	return &StagingService{db: db, txm: txm, registry: registry, cache: c}
}

// Create stages a new entity of the given type from its JSON payload.
func (s *StagingService) Create(ctx context.Context, et EntityType, payload []byte, actor Actor, requestMessage string) (model.StagedEntity, error) {
	desc, err := s.registry.Descriptor(et)
	if err != nil {
		return nil, err
	}

	entity := desc.newEntity()
	if err := json.Unmarshal(payload, entity); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	// Client-supplied envelope fields are never trusted.
	meta := entity.Meta()
	*meta = model.Approvable{
		CreatedBy:      &actor.ID,
		SubmittedBy:    &actor.ID,
		RequestMessage: requestMessage,
		ApprovalStatus: model.StatusPendingCreate,
	}
	if actor.IsAdmin() {
		meta.ApprovalStatus = model.StatusApproved
		meta.RequestMessage = ""
		meta.EverApproved = true
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		tx := repository.GetDB(txCtx, s.db)
		if desc.beforeStage != nil {
			if err := desc.beforeStage(txCtx, tx, entity, actor); err != nil {
				return err
			}
		}
		if err := entity.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		if err := tx.Create(entity).Error; err != nil {
			return fmt.Errorf("create %s: %w", et, err)
		}
		if actor.IsAdmin() && desc.onApproved != nil {
			if err := desc.onApproved(txCtx, tx, entity, actor.ID); err != nil {
				return err
			}
			// Hooks may adjust the row (e.g. settlement status flip).
			if err := tx.Save(entity).Error; err != nil {
				return fmt.Errorf("save %s after hook: %w", et, err)
			}
		}
		action := model.ActionStageCreate
		if actor.IsAdmin() {
			action = model.ActionCreate
		}
		return writeAudit(tx, actor.ID, action, et, entity.GetID(), map[string]any{
			"approval_status": meta.ApprovalStatus,
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStatements(ctx, entity)
	return entity, nil
}

// Edit stages a field-level patch. Admin edits apply in place. A user edit
// of a row with approved history leaves the visible fields at their last
// approved values and parks the typed diff in PendingPayload; a user edit of
// a never-approved submission revises the proposal itself.
func (s *StagingService) Edit(ctx context.Context, et EntityType, id uuid.UUID, patch []byte, actor Actor, requestMessage string) (model.StagedEntity, error) {
	desc, err := s.registry.Descriptor(et)
	if err != nil {
		return nil, err
	}

	entity := desc.newEntity()
	var preKeys []string
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		tx := repository.GetDB(txCtx, s.db)
		if err := tx.First(entity, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s %s", ErrNotFound, et, id)
			}
			return err
		}
		// Statement keys the row dirties before the patch; the patch may
		// move it elsewhere (e.g. to another ledger).
		preKeys = statementCacheKeys(entity)

		// Surface malformed proposals now, not at approval: apply the patch
		// to a throwaway copy and validate the result.
		draft := desc.newEntity()
		snapshot, err := json.Marshal(entity)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(snapshot, draft); err != nil {
			return err
		}
		if err := draft.ApplyPatch(patch); err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		if err := draft.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}

		meta := entity.Meta()
		meta.Version++
		meta.SubmittedBy = &actor.ID
		meta.RequestMessage = requestMessage

		applyInPlace := func(status model.ApprovalStatus) error {
			if err := entity.ApplyPatch(patch); err != nil {
				return fmt.Errorf("%w: %v", ErrValidation, err)
			}
			if desc.beforeStage != nil {
				if err := desc.beforeStage(txCtx, tx, entity, actor); err != nil {
					return err
				}
			}
			if err := entity.Validate(); err != nil {
				return fmt.Errorf("%w: %v", ErrValidation, err)
			}
			meta.ApprovalStatus = status
			meta.PendingPayload = ""
			return nil
		}

		var action string
		switch {
		case actor.IsAdmin():
			if err := applyInPlace(model.StatusApproved); err != nil {
				return err
			}
			meta.RequestMessage = ""
			meta.EverApproved = true
			action = model.ActionUpdate
		case meta.ApprovalStatus == model.StatusPendingCreate,
			meta.ApprovalStatus == model.StatusRejected && !meta.EverApproved:
			// Never-approved submission: there are no approved values to
			// preserve, so revise the proposal in place. The row stays (or
			// returns to) PENDING_CREATE and keeps not counting.
			if err := applyInPlace(model.StatusPendingCreate); err != nil {
				return err
			}
			action = model.ActionStageEdit
		default:
			// The staging hook vets the proposed end state (settlement
			// downgrade and duplicate check, name uniqueness, references)
			// against the patched copy; the visible row stays untouched.
			if desc.beforeStage != nil {
				if err := desc.beforeStage(txCtx, tx, draft, actor); err != nil {
					return err
				}
			}
			meta.ApprovalStatus = model.StatusPendingEdit
			meta.PendingPayload = string(patch)
			action = model.ActionStageEdit
		}

		if err := tx.Save(entity).Error; err != nil {
			return fmt.Errorf("save %s: %w", et, err)
		}
		if actor.IsAdmin() && desc.onApproved != nil {
			if err := desc.onApproved(txCtx, tx, entity, actor.ID); err != nil {
				return err
			}
			if err := tx.Save(entity).Error; err != nil {
				return fmt.Errorf("save %s after hook: %w", et, err)
			}
		}
		return writeAudit(tx, actor.ID, action, et, id, map[string]any{
			"approval_status": meta.ApprovalStatus,
			"version":         meta.Version,
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidateKeys(ctx, preKeys)
	s.invalidateStatements(ctx, entity)
	return entity, nil
}

// Delete removes the entity outright for admins (cascading strictly-owned
// children). For other actors a row with approved history is staged as a
// PENDING_DELETE marker, while a never-approved submission is simply
// withdrawn. The second return value reports whether the row is physically
// gone.
func (s *StagingService) Delete(ctx context.Context, et EntityType, id uuid.UUID, actor Actor, requestMessage string) (model.StagedEntity, bool, error) {
	desc, err := s.registry.Descriptor(et)
	if err != nil {
		return nil, false, err
	}

	entity := desc.newEntity()
	deleted := false
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		tx := repository.GetDB(txCtx, s.db)
		if err := tx.First(entity, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s %s", ErrNotFound, et, id)
			}
			return err
		}

		meta := entity.Meta()
		if actor.IsAdmin() {
			if desc.onDelete != nil {
				if err := desc.onDelete(txCtx, tx, entity); err != nil {
					return err
				}
			}
			if err := tx.Delete(entity).Error; err != nil {
				return fmt.Errorf("delete %s: %w", et, err)
			}
			deleted = true
			return writeAudit(tx, actor.ID, model.ActionDelete, et, id, nil)
		}

		if meta.ApprovalStatus == model.StatusPendingCreate ||
			(meta.ApprovalStatus == model.StatusRejected && !meta.EverApproved) {
			// Withdrawing a never-approved submission: there are no approved
			// values to protect, and parking it as PENDING_DELETE would make
			// its unapproved values count toward totals.
			if desc.onDelete != nil {
				if err := desc.onDelete(txCtx, tx, entity); err != nil {
					return err
				}
			}
			if err := tx.Delete(entity).Error; err != nil {
				return fmt.Errorf("delete %s: %w", et, err)
			}
			deleted = true
			return writeAudit(tx, actor.ID, model.ActionDelete, et, id, map[string]any{
				"withdrawn": true,
			})
		}

		meta.Version++
		meta.ApprovalStatus = model.StatusPendingDelete
		meta.SubmittedBy = &actor.ID
		meta.RequestMessage = requestMessage
		if err := tx.Save(entity).Error; err != nil {
			return fmt.Errorf("save %s: %w", et, err)
		}
		return writeAudit(tx, actor.ID, model.ActionStageDelete, et, id, map[string]any{
			"version": meta.Version,
		})
	})
	if err != nil {
		return nil, false, err
	}

	s.invalidateStatements(ctx, entity)
	return entity, deleted, nil
}

// Get returns one raw row, pending payload included.
func (s *StagingService) Get(ctx context.Context, et EntityType, id uuid.UUID) (model.StagedEntity, error) {
	desc, err := s.registry.Descriptor(et)
	if err != nil {
		return nil, err
	}
	entity := desc.newEntity()
	if err := s.db.WithContext(ctx).First(entity, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s %s", ErrNotFound, et, id)
		}
		return nil, err
	}
	return entity, nil
}

// List returns raw rows with pagination and optional filters.
func (s *StagingService) List(ctx context.Context, et EntityType, f ListFilter) ([]model.StagedEntity, int64, error) {
	desc, err := s.registry.Descriptor(et)
	if err != nil {
		return nil, 0, err
	}
	return desc.list(s.db.WithContext(ctx), f)
}

func (s *StagingService) invalidateStatements(ctx context.Context, e model.StagedEntity) {
	s.invalidateKeys(ctx, statementCacheKeys(e))
}

func (s *StagingService) invalidateKeys(ctx context.Context, keys []string) {
	if s.cache == nil || len(keys) == 0 {
		return
	}
	// Invalidation failures only cost freshness, never correctness.
	_ = s.cache.Delete(ctx, keys...)
}

// writeAudit appends the who/what/when trail inside the caller's transaction.
func writeAudit(tx *gorm.DB, userID uuid.UUID, action string, et EntityType, entityID uuid.UUID, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	payload, _ := json.Marshal(details)
	entry := model.AuditLog{
		UserID:     &userID,
		Action:     action,
		EntityType: string(et),
		EntityID:   entityID.String(),
		Details:    string(payload),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}
