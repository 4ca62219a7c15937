package service

import (
	"context"
	"errors"
	"fmt"

	"sitekhata/internal/cache"
	"sitekhata/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateAccountRequest struct {
	Type           string          `json:"type" binding:"required"`
	Name           string          `json:"name" binding:"required"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	BankName       string          `json:"bank_name"`
	AccountNumber  string          `json:"account_number"`
	IFSC           string          `json:"ifsc"`
}

type UpdateAccountRequest struct {
	Name           *string          `json:"name"`
	OpeningBalance *decimal.Decimal `json:"opening_balance"`
	BankName       *string          `json:"bank_name"`
	AccountNumber  *string          `json:"account_number"`
	IFSC           *string          `json:"ifsc"`
}

// AccountService manages cash boxes and bank accounts. Admin-only; these rows
// never enter the approval queue but their statements depend on it.
type AccountService struct {
	db    *gorm.DB
	cache cache.Cache
}

func NewAccountService(db *gorm.DB, c cache.Cache) *AccountService {
	return &AccountService{db: db, cache: c}
}

func (s *AccountService) Create(ctx context.Context, req CreateAccountRequest, actor Actor) (*model.FinancialAccount, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins manage financial accounts", ErrInvalidState)
	}
	if req.Type != model.AccountCash && req.Type != model.AccountBank {
		return nil, fmt.Errorf("%w: account type must be CASH or BANK", ErrValidation)
	}
	if req.Name == "" {
		return nil, fmt.Errorf("%w: account name is required", ErrValidation)
	}

	account := model.FinancialAccount{
		Type:           req.Type,
		Name:           req.Name,
		OpeningBalance: req.OpeningBalance,
		BankName:       req.BankName,
		AccountNumber:  req.AccountNumber,
		IFSC:           req.IFSC,
	}
	if err := s.db.WithContext(ctx).Create(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *AccountService) Update(ctx context.Context, id uuid.UUID, req UpdateAccountRequest, actor Actor) (*model.FinancialAccount, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins manage financial accounts", ErrInvalidState)
	}

	var account model.FinancialAccount
	if err := s.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: financial account %s", ErrNotFound, id)
		}
		return nil, err
	}

	if req.Name != nil {
		account.Name = *req.Name
	}
	if req.OpeningBalance != nil {
		account.OpeningBalance = *req.OpeningBalance
	}
	if req.BankName != nil {
		account.BankName = *req.BankName
	}
	if req.AccountNumber != nil {
		account.AccountNumber = *req.AccountNumber
	}
	if req.IFSC != nil {
		account.IFSC = *req.IFSC
	}

	if err := s.db.WithContext(ctx).Save(&account).Error; err != nil {
		return nil, err
	}
	if s.cache != nil {
		// Opening balance feeds the cached statement.
		_ = s.cache.Delete(ctx, accountStatementKey(id))
	}
	return &account, nil
}

func (s *AccountService) Get(ctx context.Context, id uuid.UUID) (*model.FinancialAccount, error) {
	var account model.FinancialAccount
	if err := s.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: financial account %s", ErrNotFound, id)
		}
		return nil, err
	}
	return &account, nil
}

func (s *AccountService) List(ctx context.Context) ([]model.FinancialAccount, error) {
	var accounts []model.FinancialAccount
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// Delete refuses to remove an account that effective transactions or journal
// entries still reference.
func (s *AccountService) Delete(ctx context.Context, id uuid.UUID, actor Actor) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: only admins manage financial accounts", ErrInvalidState)
	}

	var txCount int64
	if err := s.db.WithContext(ctx).Model(&model.Transaction{}).
		Where("financial_account_id = ?", id).Count(&txCount).Error; err != nil {
		return err
	}
	var jCount int64
	if err := s.db.WithContext(ctx).Model(&model.JournalEntry{}).
		Where("debit_account_id = ? OR credit_account_id = ?", id, id).Count(&jCount).Error; err != nil {
		return err
	}
	if txCount > 0 || jCount > 0 {
		return fmt.Errorf("%w: account is referenced by transactions or journal entries", ErrValidation)
	}

	res := s.db.WithContext(ctx).Delete(&model.FinancialAccount{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: financial account %s", ErrNotFound, id)
	}
	if s.cache != nil {
		_ = s.cache.Delete(ctx, accountStatementKey(id))
	}
	return nil
}
