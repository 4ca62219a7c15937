package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// HajariStatus enum constants. SETTLEMENT and PENDING_SETTLEMENT rows are not
// attendance: they carry a payout amount in Upad and reduce the worker's
// payable balance once confirmed.
const (
	HajariPresent           = "PRESENT"
	HajariAbsent            = "ABSENT"
	HajariHalfDay           = "HALF_DAY"
	HajariSettlement        = "SETTLEMENT"
	HajariPendingSettlement = "PENDING_SETTLEMENT"
)

// Hajari is one worker-day: attendance with optional overtime and advance
// ("upad"), or a settlement row. Rate is snapshotted from the labor at staging
// time so later rate changes don't rewrite history.
type Hajari struct {
	ID uuid.UUID `gorm:"type:uuid;default:(gen_random_uuid());primaryKey" json:"id"`
	Approvable

	LaborID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"labor_id"`
	ProjectID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"project_id"`
	Date          time.Time       `gorm:"not null;index" json:"date"`
	Status        string          `gorm:"type:varchar(20);not null" json:"status"`
	OvertimeHours decimal.Decimal `gorm:"type:decimal(6,2);default:0" json:"overtime_hours"`
	Upad          decimal.Decimal `gorm:"type:decimal(18,4);default:0" json:"upad"`
	Rate          decimal.Decimal `gorm:"type:decimal(18,4);default:0" json:"rate"`
	Note          string          `gorm:"type:text" json:"note,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (h *Hajari) BeforeCreate(_ *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

func (h *Hajari) GetID() uuid.UUID { return h.ID }

// IsSettlementRow reports whether the row is a settlement (confirmed or
// requested) rather than ordinary attendance.
func (h *Hajari) IsSettlementRow() bool {
	return h.Status == HajariSettlement || h.Status == HajariPendingSettlement
}

func (h *Hajari) Validate() error {
	if h.LaborID == uuid.Nil {
		return errors.New("hajari labor is required")
	}
	if h.ProjectID == uuid.Nil {
		return errors.New("hajari project is required")
	}
	if h.Date.IsZero() {
		return errors.New("hajari date is required")
	}
	switch h.Status {
	case HajariPresent, HajariAbsent, HajariHalfDay, HajariSettlement, HajariPendingSettlement:
	default:
		return errors.New("invalid hajari status")
	}
	if h.OvertimeHours.IsNegative() {
		return errors.New("overtime hours cannot be negative")
	}
	if h.Upad.IsNegative() {
		return errors.New("upad cannot be negative")
	}
	if h.IsSettlementRow() && !h.Upad.IsPositive() {
		return errors.New("settlement amount must be positive")
	}
	return nil
}

// HajariPatch is the typed partial used for staged edits.
type HajariPatch struct {
	Date          *time.Time       `json:"date,omitempty"`
	Status        *string          `json:"status,omitempty"`
	OvertimeHours *decimal.Decimal `json:"overtime_hours,omitempty"`
	Upad          *decimal.Decimal `json:"upad,omitempty"`
	Rate          *decimal.Decimal `json:"rate,omitempty"`
	Note          *string          `json:"note,omitempty"`
}

func (h *Hajari) ApplyPatch(raw []byte) error {
	var p HajariPatch
	if err := unmarshalStrict(raw, &p); err != nil {
		return err
	}
	if p.Date != nil {
		h.Date = *p.Date
	}
	if p.Status != nil {
		h.Status = *p.Status
	}
	if p.OvertimeHours != nil {
		h.OvertimeHours = *p.OvertimeHours
	}
	if p.Upad != nil {
		h.Upad = *p.Upad
	}
	if p.Rate != nil {
		h.Rate = *p.Rate
	}
	if p.Note != nil {
		h.Note = *p.Note
	}
	return nil
}

// Labor is a worker with a daily wage rate.
type Labor struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:(gen_random_uuid());primaryKey" json:"id"`
	Name      string          `gorm:"type:varchar(255);not null" json:"name"`
	Phone     string          `gorm:"type:varchar(20)" json:"phone,omitempty"`
	Rate      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"rate"`
	ProjectID *uuid.UUID      `gorm:"type:uuid;index" json:"project_id,omitempty"`
	IsActive  bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (l *Labor) BeforeCreate(_ *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
