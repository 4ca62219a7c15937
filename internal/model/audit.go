package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Audit actions for the staging/approval workflow.
const (
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"

	ActionStageCreate = "STAGE_CREATE"
	ActionStageEdit   = "STAGE_EDIT"
	ActionStageDelete = "STAGE_DELETE"

	ActionApproveChange           = "APPROVE_CHANGE"
	ActionRejectChange            = "REJECT_CHANGE"
	ActionCreateSettlementPayout  = "CREATE_SETTLEMENT_PAYOUT"
	ActionProvisionReservedLedger = "PROVISION_RESERVED_LEDGER"
)

// AuditLog tracks who did what and when for every staged or resolved change.
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:(gen_random_uuid());primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	User       *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityType string     `gorm:"type:varchar(30);index" json:"entity_type"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	Details    string     `gorm:"type:jsonb" json:"details"` // serialized JSON payload
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
