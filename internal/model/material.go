package model

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Material is a stock item (cement, steel, sand...).
type Material struct {
	ID uuid.UUID `gorm:"type:uuid;default:(gen_random_uuid());primaryKey" json:"id"`
	Approvable

	Name string `gorm:"type:varchar(255);not null" json:"name"`
	Unit string `gorm:"type:varchar(20);not null" json:"unit"` // bag, kg, cft...

	Entries []MaterialLedgerEntry `gorm:"foreignKey:MaterialID;constraint:OnDelete:CASCADE" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (m *Material) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (m *Material) GetID() uuid.UUID { return m.ID }

func (m *Material) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return errors.New("material name is required")
	}
	if strings.TrimSpace(m.Unit) == "" {
		return errors.New("material unit is required")
	}
	return nil
}

// MaterialPatch is the typed partial used for staged edits.
type MaterialPatch struct {
	Name *string `json:"name,omitempty"`
	Unit *string `json:"unit,omitempty"`
}

func (m *Material) ApplyPatch(raw []byte) error {
	var p MaterialPatch
	if err := unmarshalStrict(raw, &p); err != nil {
		return err
	}
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.Unit != nil {
		m.Unit = *p.Unit
	}
	return nil
}

// MaterialEntryType enum constants
const (
	MaterialIn  = "IN"
	MaterialOut = "OUT"
)

// MaterialLedgerEntry records one stock movement of a material on a project.
type MaterialLedgerEntry struct {
	ID uuid.UUID `gorm:"type:uuid;default:(gen_random_uuid());primaryKey" json:"id"`
	Approvable

	MaterialID uuid.UUID       `gorm:"type:uuid;not null;index" json:"material_id"`
	ProjectID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"project_id"`
	Type       string          `gorm:"type:varchar(5);not null" json:"type"` // IN, OUT
	Quantity   decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"quantity"`
	Rate       decimal.Decimal `gorm:"type:decimal(18,4);default:0" json:"rate"`
	Date       time.Time       `gorm:"not null;index" json:"date"`
	Note       string          `gorm:"type:text" json:"note,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (e *MaterialLedgerEntry) BeforeCreate(_ *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

func (e *MaterialLedgerEntry) GetID() uuid.UUID { return e.ID }

func (e *MaterialLedgerEntry) Validate() error {
	if e.MaterialID == uuid.Nil {
		return errors.New("material is required")
	}
	if e.ProjectID == uuid.Nil {
		return errors.New("project is required")
	}
	if e.Type != MaterialIn && e.Type != MaterialOut {
		return errors.New("entry type must be IN or OUT")
	}
	if !e.Quantity.IsPositive() {
		return errors.New("quantity must be positive")
	}
	if e.Date.IsZero() {
		return errors.New("entry date is required")
	}
	return nil
}

// MaterialLedgerEntryPatch is the typed partial used for staged edits.
type MaterialLedgerEntryPatch struct {
	Type     *string          `json:"type,omitempty"`
	Quantity *decimal.Decimal `json:"quantity,omitempty"`
	Rate     *decimal.Decimal `json:"rate,omitempty"`
	Date     *time.Time       `json:"date,omitempty"`
	Note     *string          `json:"note,omitempty"`
}

func (e *MaterialLedgerEntry) ApplyPatch(raw []byte) error {
	var p MaterialLedgerEntryPatch
	if err := unmarshalStrict(raw, &p); err != nil {
		return err
	}
	if p.Type != nil {
		e.Type = *p.Type
	}
	if p.Quantity != nil {
		e.Quantity = *p.Quantity
	}
	if p.Rate != nil {
		e.Rate = *p.Rate
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Note != nil {
		e.Note = *p.Note
	}
	return nil
}
