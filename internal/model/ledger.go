package model

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reserved ledger names, auto-provisioned on first use. The payroll ledger is
// shared across the tenant; petty cash is one per user.
const (
	ReservedLedgerHajari    = "Hajari"
	ReservedLedgerPettyCash = "Petty Cash"
)

// IsReservedLedgerName matches the synthetic well-known ledger names
// case-insensitively.
func IsReservedLedgerName(name string) bool {
	return strings.EqualFold(name, ReservedLedgerHajari) ||
		strings.EqualFold(name, ReservedLedgerPettyCash)
}

// Ledger is a cost-code/category used to tag transactions and records. It is
// not a double-entry account. Name is unique (case-insensitive) within its
// owner scope; shared ledgers have a nil OwnerID.
type Ledger struct {
	ID uuid.UUID `gorm:"type:uuid;default:(gen_random_uuid());primaryKey" json:"id"`
	Approvable

	Name    string     `gorm:"type:varchar(255);not null;index" json:"name"`
	OwnerID *uuid.UUID `gorm:"type:uuid;index" json:"owner_id,omitempty"` // set for per-user petty cash

	GSTIN             string `gorm:"type:varchar(20)" json:"gstin,omitempty"`
	GSTRegisteredName string `gorm:"type:varchar(255)" json:"gst_registered_name,omitempty"`

	// Reserved marks auto-provisioned payroll/petty-cash ledgers.
	Reserved bool `gorm:"not null;default:false" json:"reserved"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (l *Ledger) BeforeCreate(_ *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

func (l *Ledger) GetID() uuid.UUID { return l.ID }

func (l *Ledger) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return errors.New("ledger name is required")
	}
	return nil
}

// LedgerPatch is the typed partial used for staged edits.
type LedgerPatch struct {
	Name              *string `json:"name,omitempty"`
	GSTIN             *string `json:"gstin,omitempty"`
	GSTRegisteredName *string `json:"gst_registered_name,omitempty"`
}

func (l *Ledger) ApplyPatch(raw []byte) error {
	var p LedgerPatch
	if err := unmarshalStrict(raw, &p); err != nil {
		return err
	}
	if p.Name != nil {
		l.Name = *p.Name
	}
	if p.GSTIN != nil {
		l.GSTIN = *p.GSTIN
	}
	if p.GSTRegisteredName != nil {
		l.GSTRegisteredName = *p.GSTRegisteredName
	}
	return nil
}
