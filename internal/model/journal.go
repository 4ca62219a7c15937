package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// JournalMode enum constants — which kind of book each side of the entry hits.
const (
	JournalModeCash   = "cash"
	JournalModeBank   = "bank"
	JournalModeLedger = "ledger"
)

// JournalEntry is a manual double-entry adjustment between two accounts or
// ledgers outside the normal transaction flow. Debit = receiver, credit =
// giver. Admin-managed and not staged, but it participates in the same
// statement computations as transactions. Journal entries carry no project
// dimension, so ledger statements include them only when unscoped.
type JournalEntry struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:(gen_random_uuid());primaryKey" json:"id"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	Date      time.Time       `gorm:"not null;index" json:"date"`
	Narration string          `gorm:"type:text" json:"narration,omitempty"`

	DebitMode      string     `gorm:"type:varchar(10);not null" json:"debit_mode"` // cash, bank, ledger
	DebitAccountID *uuid.UUID `gorm:"type:uuid;index" json:"debit_account_id,omitempty"`
	DebitLedgerID  *uuid.UUID `gorm:"type:uuid;index" json:"debit_ledger_id,omitempty"`

	CreditMode      string     `gorm:"type:varchar(10);not null" json:"credit_mode"`
	CreditAccountID *uuid.UUID `gorm:"type:uuid;index" json:"credit_account_id,omitempty"`
	CreditLedgerID  *uuid.UUID `gorm:"type:uuid;index" json:"credit_ledger_id,omitempty"`

	CreatedBy *uuid.UUID `gorm:"type:uuid" json:"created_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (j *JournalEntry) BeforeCreate(_ *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}

// DebitsAccount reports whether the entry's debit side hits the given
// financial account.
func (j *JournalEntry) DebitsAccount(accountID uuid.UUID) bool {
	return j.DebitAccountID != nil && *j.DebitAccountID == accountID
}

// DebitsLedger reports whether the entry's debit side hits the given ledger.
func (j *JournalEntry) DebitsLedger(ledgerID uuid.UUID) bool {
	return j.DebitMode == JournalModeLedger && j.DebitLedgerID != nil && *j.DebitLedgerID == ledgerID
}
