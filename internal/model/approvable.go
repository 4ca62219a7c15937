package model

import (
	"github.com/google/uuid"
)

// ApprovalStatus is the lifecycle state of a staged entity.
type ApprovalStatus string

const (
	StatusApproved      ApprovalStatus = "APPROVED"
	StatusPendingCreate ApprovalStatus = "PENDING_CREATE"
	StatusPendingEdit   ApprovalStatus = "PENDING_EDIT"
	StatusPendingDelete ApprovalStatus = "PENDING_DELETE"
	StatusRejected      ApprovalStatus = "REJECTED"
)

// Approvable is the approval envelope embedded in every entity whose writes are
// gated behind admin approval. PendingPayload holds the proposed field diff and
// is non-empty iff the status is PENDING_EDIT; for PENDING_CREATE the entity's
// own columns already hold the proposed values, and for PENDING_DELETE they hold
// the last approved values until the delete is confirmed.
type Approvable struct {
	ApprovalStatus ApprovalStatus `gorm:"type:varchar(20);not null;default:'APPROVED';index" json:"approval_status"`
	CreatedBy      *uuid.UUID     `gorm:"type:uuid;index" json:"created_by,omitempty"`
	SubmittedBy    *uuid.UUID     `gorm:"type:uuid" json:"submitted_by,omitempty"`
	PendingPayload string         `gorm:"type:text" json:"pending_payload,omitempty"`
	RequestMessage string         `gorm:"type:text" json:"request_message,omitempty"`
	Remarks        string         `gorm:"type:text" json:"remarks,omitempty"`
	RejectionCount int            `gorm:"not null;default:0" json:"rejection_count"`
	Version        int            `gorm:"not null;default:0" json:"version"`

	// EverApproved records whether the row has ever held approved values.
	// It distinguishes a rejected submission, which has nothing approved to
	// preserve, from a rejected edit of a previously approved row when a
	// later mutation picks its pending state.
	EverApproved bool `gorm:"not null;default:false" json:"ever_approved"`
}

// Meta lets the staging machinery reach the envelope through the StagedEntity
// interface without knowing the concrete row type.
func (a *Approvable) Meta() *Approvable { return a }

// IsEffective reports whether the entity's last-approved values count toward
// computed totals. PENDING_CREATE and REJECTED rows never count; everything
// else — including PENDING_EDIT and PENDING_DELETE, whose visible columns are
// still the last approved values — counts unchanged. An empty status is a
// legacy row and is treated as APPROVED.
func (a Approvable) IsEffective() bool {
	switch a.ApprovalStatus {
	case StatusPendingCreate, StatusRejected:
		return false
	default:
		return true
	}
}

// IsPending reports whether the entity has an unresolved change request.
func (a Approvable) IsPending() bool {
	switch a.ApprovalStatus {
	case StatusPendingCreate, StatusPendingEdit, StatusPendingDelete:
		return true
	default:
		return false
	}
}

// StagedEntity is implemented by every row type subject to the approval
// workflow. ApplyPatch performs a structural field-by-field overwrite from a
// typed partial; nested sub-objects are replaced wholesale, never deep-merged.
type StagedEntity interface {
	Meta() *Approvable
	GetID() uuid.UUID
	Validate() error
	ApplyPatch(raw []byte) error
}

// NotEffectiveStatuses is the SQL-side complement of IsEffective, for use in
// WHERE approval_status NOT IN (?) clauses.
var NotEffectiveStatuses = []ApprovalStatus{StatusPendingCreate, StatusRejected}
