package service

import (
	"errors"

	"sitekhata/internal/model"

	"github.com/google/uuid"
)

// Error taxonomy for the approval engine. Validation errors carry the detail
// verbatim for form display; state and atomicity errors abort the whole
// operation with no partial writes. Rejections are NOT errors — they are a
// successful state transition.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidState      = errors.New("invalid state")
	ErrValidation        = errors.New("validation failed")
	ErrProvisioning      = errors.New("reserved ledger provisioning failed")
	ErrAtomicComposite   = errors.New("composite write failed")
	ErrVersionConflict   = errors.New("version conflict")
	ErrUnknownEntityType = errors.New("unknown entity type")
)

// Actor is the authenticated caller, as supplied by the auth layer.
type Actor struct {
	ID   uuid.UUID
	Role string
}

func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }
