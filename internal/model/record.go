package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RecordType enum constants
const (
	RecordReceivable = "RECEIVABLE"
	RecordPayable    = "PAYABLE"
)

// RecordStatus enum constants
const (
	RecordStatusPending = "PENDING"
	RecordStatusPartial = "PARTIAL"
	RecordStatusPaid    = "PAID"
)

// GSTBreakup carries the optional tax split of a record. On staged edits the
// whole breakup is replaced, never merged field by field.
type GSTBreakup struct {
	TaxableAmount decimal.Decimal `gorm:"type:decimal(18,4);default:0" json:"taxable_amount"`
	CGSTRate      decimal.Decimal `gorm:"type:decimal(10,4);default:0" json:"cgst_rate"`
	CGSTAmount    decimal.Decimal `gorm:"type:decimal(18,4);default:0" json:"cgst_amount"`
	SGSTRate      decimal.Decimal `gorm:"type:decimal(10,4);default:0" json:"sgst_rate"`
	SGSTAmount    decimal.Decimal `gorm:"type:decimal(18,4);default:0" json:"sgst_amount"`
	IGSTRate      decimal.Decimal `gorm:"type:decimal(10,4);default:0" json:"igst_rate"`
	IGSTAmount    decimal.Decimal `gorm:"type:decimal(18,4);default:0" json:"igst_amount"`
	RoundOff      decimal.Decimal `gorm:"type:decimal(10,4);default:0" json:"round_off"`
}

// Record is a receivable or payable obligation not yet settled in cash/bank.
type Record struct {
	ID uuid.UUID `gorm:"type:uuid;default:(gen_random_uuid());primaryKey" json:"id"`
	Approvable

	Type        string          `gorm:"type:varchar(12);not null;index" json:"type"` // RECEIVABLE, PAYABLE
	Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	DueDate     time.Time       `gorm:"not null;index" json:"due_date"`
	Status      string          `gorm:"type:varchar(10);not null;default:'PENDING'" json:"status"` // PENDING, PARTIAL, PAID
	ProjectID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"project_id"`
	LedgerID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"ledger_id"`
	PaymentMode string          `gorm:"type:varchar(10);not null" json:"payment_mode"`
	Party       string          `gorm:"type:varchar(255)" json:"party,omitempty"`

	GST GSTBreakup `gorm:"embedded;embeddedPrefix:gst_" json:"gst"`

	PaidAmount    decimal.Decimal `gorm:"type:decimal(18,4);default:0" json:"paid_amount"`
	BalanceAmount decimal.Decimal `gorm:"type:decimal(18,4);default:0" json:"balance_amount"`

	// Settlements are strictly owned: approving a delete of the record removes
	// them with it.
	Settlements []RecordSettlement `gorm:"foreignKey:RecordID;constraint:OnDelete:CASCADE" json:"settlements,omitempty"`

	LedgerName string `gorm:"-" json:"ledger_name,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecordSettlement is one partial payment against a record, optionally linked
// to the transaction it was converted into.
type RecordSettlement struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:(gen_random_uuid());primaryKey" json:"id"`
	RecordID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"record_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	Date          time.Time       `gorm:"not null" json:"date"`
	PaymentMode   string          `gorm:"type:varchar(10);not null" json:"payment_mode"`
	TransactionID *uuid.UUID      `gorm:"type:uuid" json:"transaction_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (s *RecordSettlement) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (r *Record) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = RecordStatusPending
	}
	return nil
}

func (r *Record) GetID() uuid.UUID { return r.ID }

func (r *Record) Validate() error {
	if r.Type != RecordReceivable && r.Type != RecordPayable {
		return errors.New("record type must be RECEIVABLE or PAYABLE")
	}
	if !r.Amount.IsPositive() {
		return errors.New("record amount must be positive")
	}
	if r.DueDate.IsZero() {
		return errors.New("record due date is required")
	}
	if r.ProjectID == uuid.Nil {
		return errors.New("record project is required")
	}
	if r.LedgerID == uuid.Nil {
		return errors.New("record ledger is required")
	}
	if r.PaymentMode != PayModeCash && r.PaymentMode != PayModeBank {
		return errors.New("payment mode must be CASH or BANK")
	}
	switch r.Status {
	case "", RecordStatusPending, RecordStatusPartial, RecordStatusPaid:
	default:
		return errors.New("record status must be PENDING, PARTIAL or PAID")
	}
	if r.PaidAmount.GreaterThan(r.Amount) {
		return errors.New("paid amount cannot exceed record amount")
	}
	return nil
}

// Outstanding is the still-unsettled portion of the record.
func (r *Record) Outstanding() decimal.Decimal {
	return r.Amount.Sub(r.PaidAmount)
}

// RecordPatch is the typed partial used for staged edits. GST replaces the
// stored breakup wholesale when present.
type RecordPatch struct {
	Type          *string          `json:"type,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	DueDate       *time.Time       `json:"due_date,omitempty"`
	Status        *string          `json:"status,omitempty"`
	ProjectID     *uuid.UUID       `json:"project_id,omitempty"`
	LedgerID      *uuid.UUID       `json:"ledger_id,omitempty"`
	PaymentMode   *string          `json:"payment_mode,omitempty"`
	Party         *string          `json:"party,omitempty"`
	GST           *GSTBreakup      `json:"gst,omitempty"`
	PaidAmount    *decimal.Decimal `json:"paid_amount,omitempty"`
	BalanceAmount *decimal.Decimal `json:"balance_amount,omitempty"`
}

func (r *Record) ApplyPatch(raw []byte) error {
	var p RecordPatch
	if err := unmarshalStrict(raw, &p); err != nil {
		return err
	}
	if p.Type != nil {
		r.Type = *p.Type
	}
	if p.Amount != nil {
		r.Amount = *p.Amount
	}
	if p.DueDate != nil {
		r.DueDate = *p.DueDate
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.ProjectID != nil {
		r.ProjectID = *p.ProjectID
	}
	if p.LedgerID != nil {
		r.LedgerID = *p.LedgerID
	}
	if p.PaymentMode != nil {
		r.PaymentMode = *p.PaymentMode
	}
	if p.Party != nil {
		r.Party = *p.Party
	}
	if p.GST != nil {
		r.GST = *p.GST
	}
	if p.PaidAmount != nil {
		r.PaidAmount = *p.PaidAmount
	}
	if p.BalanceAmount != nil {
		r.BalanceAmount = *p.BalanceAmount
	}
	return nil
}
