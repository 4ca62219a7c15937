package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FinancialAccountType enum constants
const (
	AccountCash = "CASH"
	AccountBank = "BANK"
)

// FinancialAccount is a cash box or bank account whose statement is derived
// from effective transactions and journal entries. Admin-managed, not staged.
type FinancialAccount struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:(gen_random_uuid());primaryKey" json:"id"`
	Type           string          `gorm:"type:varchar(10);not null;index" json:"type"` // CASH, BANK
	Name           string          `gorm:"type:varchar(255);not null" json:"name"`
	OpeningBalance decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"opening_balance"`

	// Bank identity, only meaningful when Type == BANK.
	BankName      string `gorm:"type:varchar(255)" json:"bank_name,omitempty"`
	AccountNumber string `gorm:"type:varchar(50)" json:"account_number,omitempty"`
	IFSC          string `gorm:"type:varchar(20)" json:"ifsc,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *FinancialAccount) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
