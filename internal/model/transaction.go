package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionType enum constants
const (
	TxTypeIncome  = "INCOME"
	TxTypeExpense = "EXPENSE"
)

// PaymentMode enum constants
const (
	PayModeCash = "CASH"
	PayModeBank = "BANK"
)

// Transaction is a single cash/bank movement booked against a project and a
// cost-code ledger. Rows generated from record settlements or hajari payouts
// carry a provenance link back to their source.
type Transaction struct {
	ID uuid.UUID `gorm:"type:uuid;default:(gen_random_uuid());primaryKey" json:"id"`
	Approvable

	Type               string          `gorm:"type:varchar(10);not null;index" json:"type"` // INCOME, EXPENSE
	Amount             decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	Date               time.Time       `gorm:"not null;index" json:"date"`
	ProjectID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"project_id"`
	LedgerID           uuid.UUID       `gorm:"type:uuid;not null;index" json:"ledger_id"`
	PaymentMode        string          `gorm:"type:varchar(10);not null" json:"payment_mode"` // CASH, BANK
	FinancialAccountID *uuid.UUID      `gorm:"type:uuid;index" json:"financial_account_id,omitempty"`
	BillURL            string          `gorm:"type:text" json:"bill_url,omitempty"`
	Description        string          `gorm:"type:text" json:"description,omitempty"`

	// Provenance links. A transaction converted from a receivable/payable or
	// created by a hajari settlement payout must not be double-created.
	ConvertedFromRecordID *uuid.UUID `gorm:"type:uuid;index" json:"converted_from_record_id,omitempty"`
	HajariSettlementID    *uuid.UUID `gorm:"type:uuid;index" json:"hajari_settlement_id,omitempty"`

	// LedgerName lets clients reference a reserved ledger ("Hajari",
	// "Petty Cash") by name before it exists; staging provisions it.
	LedgerName string `gorm:"-" json:"ledger_name,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t *Transaction) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (t *Transaction) GetID() uuid.UUID { return t.ID }

func (t *Transaction) Validate() error {
	if t.Type != TxTypeIncome && t.Type != TxTypeExpense {
		return errors.New("transaction type must be INCOME or EXPENSE")
	}
	if !t.Amount.IsPositive() {
		return errors.New("transaction amount must be positive")
	}
	if t.Date.IsZero() {
		return errors.New("transaction date is required")
	}
	if t.ProjectID == uuid.Nil {
		return errors.New("transaction project is required")
	}
	if t.LedgerID == uuid.Nil {
		return errors.New("transaction ledger is required")
	}
	if t.PaymentMode != PayModeCash && t.PaymentMode != PayModeBank {
		return errors.New("payment mode must be CASH or BANK")
	}
	return nil
}

// TransactionPatch is the typed partial used for staged edits.
type TransactionPatch struct {
	Type               *string          `json:"type,omitempty"`
	Amount             *decimal.Decimal `json:"amount,omitempty"`
	Date               *time.Time       `json:"date,omitempty"`
	ProjectID          *uuid.UUID       `json:"project_id,omitempty"`
	LedgerID           *uuid.UUID       `json:"ledger_id,omitempty"`
	PaymentMode        *string          `json:"payment_mode,omitempty"`
	FinancialAccountID *uuid.UUID       `json:"financial_account_id,omitempty"`
	BillURL            *string          `json:"bill_url,omitempty"`
	Description        *string          `json:"description,omitempty"`
}

func (t *Transaction) ApplyPatch(raw []byte) error {
	var p TransactionPatch
	if err := unmarshalStrict(raw, &p); err != nil {
		return err
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.ProjectID != nil {
		t.ProjectID = *p.ProjectID
	}
	if p.LedgerID != nil {
		t.LedgerID = *p.LedgerID
	}
	if p.PaymentMode != nil {
		t.PaymentMode = *p.PaymentMode
	}
	if p.FinancialAccountID != nil {
		t.FinancialAccountID = p.FinancialAccountID
	}
	if p.BillURL != nil {
		t.BillURL = *p.BillURL
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	return nil
}
