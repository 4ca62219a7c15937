package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sitekhata/internal/cache"
	"sitekhata/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateJournalRequest struct {
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	Date      time.Time       `json:"date" binding:"required"`
	Narration string          `json:"narration"`

	DebitMode      string     `json:"debit_mode" binding:"required"`
	DebitAccountID *uuid.UUID `json:"debit_account_id"`
	DebitLedgerID  *uuid.UUID `json:"debit_ledger_id"`

	CreditMode      string     `json:"credit_mode" binding:"required"`
	CreditAccountID *uuid.UUID `json:"credit_account_id"`
	CreditLedgerID  *uuid.UUID `json:"credit_ledger_id"`
}

// JournalService manages manual double-entry adjustments. Admin-only and not
// staged: a journal entry is itself the correction mechanism.
type JournalService struct {
	db    *gorm.DB
	cache cache.Cache
}

func NewJournalService(db *gorm.DB, c cache.Cache) *JournalService {
	return &JournalService{db: db, cache: c}
}

func (s *JournalService) Create(ctx context.Context, req CreateJournalRequest, actor Actor) (*model.JournalEntry, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins create journal entries", ErrInvalidState)
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: journal amount must be positive", ErrValidation)
	}

	entry := model.JournalEntry{
		Amount:          req.Amount,
		Date:            req.Date,
		Narration:       req.Narration,
		DebitMode:       req.DebitMode,
		DebitAccountID:  req.DebitAccountID,
		DebitLedgerID:   req.DebitLedgerID,
		CreditMode:      req.CreditMode,
		CreditAccountID: req.CreditAccountID,
		CreditLedgerID:  req.CreditLedgerID,
		CreatedBy:       &actor.ID,
	}
	if err := s.validateSide(ctx, "debit", entry.DebitMode, entry.DebitAccountID, entry.DebitLedgerID); err != nil {
		return nil, err
	}
	if err := s.validateSide(ctx, "credit", entry.CreditMode, entry.CreditAccountID, entry.CreditLedgerID); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, err
	}
	s.invalidate(ctx, &entry)
	return &entry, nil
}

func (s *JournalService) List(ctx context.Context, limit, offset int) ([]model.JournalEntry, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&model.JournalEntry{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := s.db.WithContext(ctx).Order("date DESC, created_at DESC")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	var entries []model.JournalEntry
	if err := q.Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (s *JournalService) Delete(ctx context.Context, id uuid.UUID, actor Actor) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: only admins delete journal entries", ErrInvalidState)
	}

	var entry model.JournalEntry
	if err := s.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: journal entry %s", ErrNotFound, id)
		}
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&entry).Error; err != nil {
		return err
	}
	s.invalidate(ctx, &entry)
	return nil
}

// validateSide checks that one side of the entry names exactly the reference
// its mode requires and that the reference exists.
func (s *JournalService) validateSide(ctx context.Context, side, mode string, accountID, ledgerID *uuid.UUID) error {
	switch mode {
	case model.JournalModeCash, model.JournalModeBank:
		if accountID == nil {
			return fmt.Errorf("%w: %s side needs a financial account", ErrValidation, side)
		}
		var count int64
		if err := s.db.WithContext(ctx).Model(&model.FinancialAccount{}).
			Where("id = ?", *accountID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("%w: %s account %s not found", ErrValidation, side, *accountID)
		}
	case model.JournalModeLedger:
		if ledgerID == nil {
			return fmt.Errorf("%w: %s side needs a ledger", ErrValidation, side)
		}
		var count int64
		if err := s.db.WithContext(ctx).Model(&model.Ledger{}).
			Where("id = ?", *ledgerID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("%w: %s ledger %s not found", ErrValidation, side, *ledgerID)
		}
	default:
		return fmt.Errorf("%w: %s mode must be cash, bank, or ledger", ErrValidation, side)
	}
	return nil
}

func (s *JournalService) invalidate(ctx context.Context, entry *model.JournalEntry) {
	if s.cache == nil {
		return
	}
	if keys := journalCacheKeys(entry); len(keys) > 0 {
		_ = s.cache.Delete(ctx, keys...)
	}
}
