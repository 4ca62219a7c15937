package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"sitekhata/internal/cache"
	"sitekhata/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const statementCacheTTL = 5 * time.Minute

// StatementRow is one line of a running-balance statement.
type StatementRow struct {
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Kind        string          `json:"kind"`   // INCOME, EXPENSE
	Source      string          `json:"source"` // transaction, journal
	SourceID    uuid.UUID       `json:"source_id"`
	Amount      decimal.Decimal `json:"amount"`
	Balance     decimal.Decimal `json:"balance"`
}

// AccountStatement is the cash/bank book for one financial account.
type AccountStatement struct {
	AccountID      uuid.UUID       `json:"account_id"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	TotalIncome    decimal.Decimal `json:"total_income"`
	TotalExpense   decimal.Decimal `json:"total_expense"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	Rows           []StatementRow  `json:"rows"`
}

// LedgerStatement is the cost-code view: transaction flow plus outstanding
// receivables/payables booked against the ledger.
type LedgerStatement struct {
	LedgerID        uuid.UUID       `json:"ledger_id"`
	ProjectID       *uuid.UUID      `json:"project_id,omitempty"`
	TotalIncome     decimal.Decimal `json:"total_income"`
	TotalExpense    decimal.Decimal `json:"total_expense"`
	Net             decimal.Decimal `json:"net"`
	TotalReceivable decimal.Decimal `json:"total_receivable"`
	TotalPayable    decimal.Decimal `json:"total_payable"`
	Rows            []StatementRow  `json:"rows"`
}

// ProjectTotals is the per-project financial rollup.
type ProjectTotals struct {
	ProjectID       uuid.UUID       `json:"project_id"`
	TotalIncome     decimal.Decimal `json:"total_income"`
	TotalExpense    decimal.Decimal `json:"total_expense"`
	Net             decimal.Decimal `json:"net"`
	TotalReceivable decimal.Decimal `json:"total_receivable"`
	TotalPayable    decimal.Decimal `json:"total_payable"`
}

// StatementService derives running balances and aggregate totals from the set
// of effective rows. It is read-only: computing a statement twice with no
// intervening writes yields identical output.
type StatementService struct {
	db    *gorm.DB
	cache cache.Cache
}

func NewStatementService(db *gorm.DB, c cache.Cache) *StatementService {
	return &StatementService{db: db, cache: c}
}

// AccountStatement builds the chronological cash/bank book for an account.
// Transactions booked against the account and journal entries touching it are
// merged by date (ties keep insertion order), the running balance is seeded
// with the opening balance, and PENDING_CREATE/REJECTED rows never appear.
func (s *StatementService) AccountStatement(ctx context.Context, accountID uuid.UUID) (*AccountStatement, error) {
	key := accountStatementKey(accountID)
	if cached, ok := s.cacheGet(ctx, key); ok {
		var out AccountStatement
		if err := json.Unmarshal(cached, &out); err == nil {
			return &out, nil
		}
	}

	var account model.FinancialAccount
	if err := s.db.WithContext(ctx).First(&account, "id = ?", accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: financial account %s", ErrNotFound, accountID)
		}
		return nil, err
	}

	var txs []model.Transaction
	if err := s.db.WithContext(ctx).
		Where("financial_account_id = ?", accountID).
		Where("approval_status NOT IN ?", model.NotEffectiveStatuses).
		Order("created_at ASC, id ASC").
		Find(&txs).Error; err != nil {
		return nil, err
	}

	var journals []model.JournalEntry
	if err := s.db.WithContext(ctx).
		Where("debit_account_id = ? OR credit_account_id = ?", accountID, accountID).
		Order("created_at ASC, id ASC").
		Find(&journals).Error; err != nil {
		return nil, err
	}

	rows := make([]StatementRow, 0, len(txs)+len(journals))
	for _, t := range txs {
		if !t.IsEffective() {
			continue
		}
		rows = append(rows, StatementRow{
			Date:        t.Date,
			Description: t.Description,
			Kind:        t.Type,
			Source:      "transaction",
			SourceID:    t.ID,
			Amount:      t.Amount,
		})
	}
	for _, j := range journals {
		// Double-entry convention: debit = receiver, credit = giver.
		kind := model.TxTypeExpense
		if j.DebitsAccount(accountID) {
			kind = model.TxTypeIncome
		}
		rows = append(rows, StatementRow{
			Date:        j.Date,
			Description: j.Narration,
			Kind:        kind,
			Source:      "journal",
			SourceID:    j.ID,
			Amount:      j.Amount,
		})
	}

	out := &AccountStatement{
		AccountID:      accountID,
		OpeningBalance: account.OpeningBalance,
	}
	out.TotalIncome, out.TotalExpense, out.Rows = walkRows(rows, account.OpeningBalance)
	out.ClosingBalance = account.OpeningBalance.Add(out.TotalIncome).Sub(out.TotalExpense)

	s.cachePut(ctx, key, out)
	return out, nil
}

// LedgerStatement builds the cost-code flow for a ledger, optionally scoped
// to a project and/or a submitting user. Journal entries carry no project
// dimension and are included only when no project filter is applied.
func (s *StatementService) LedgerStatement(ctx context.Context, ledgerID uuid.UUID, projectID *uuid.UUID, userID *uuid.UUID) (*LedgerStatement, error) {
	key := ledgerStatementKey(ledgerID)
	useCache := projectID == nil && userID == nil
	if useCache {
		if cached, ok := s.cacheGet(ctx, key); ok {
			var out LedgerStatement
			if err := json.Unmarshal(cached, &out); err == nil {
				return &out, nil
			}
		}
	}

	var ledger model.Ledger
	if err := s.db.WithContext(ctx).First(&ledger, "id = ?", ledgerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: ledger %s", ErrNotFound, ledgerID)
		}
		return nil, err
	}

	txQuery := s.db.WithContext(ctx).
		Where("ledger_id = ?", ledgerID).
		Where("approval_status NOT IN ?", model.NotEffectiveStatuses)
	if projectID != nil {
		txQuery = txQuery.Where("project_id = ?", *projectID)
	}
	if userID != nil {
		txQuery = txQuery.Where("created_by = ?", *userID)
	}
	var txs []model.Transaction
	if err := txQuery.Order("created_at ASC, id ASC").Find(&txs).Error; err != nil {
		return nil, err
	}

	rows := make([]StatementRow, 0, len(txs))
	for _, t := range txs {
		if !t.IsEffective() {
			continue
		}
		rows = append(rows, StatementRow{
			Date:        t.Date,
			Description: t.Description,
			Kind:        t.Type,
			Source:      "transaction",
			SourceID:    t.ID,
			Amount:      t.Amount,
		})
	}

	if projectID == nil {
		var journals []model.JournalEntry
		if err := s.db.WithContext(ctx).
			Where("(debit_mode = ? AND debit_ledger_id = ?) OR (credit_mode = ? AND credit_ledger_id = ?)",
				model.JournalModeLedger, ledgerID, model.JournalModeLedger, ledgerID).
			Order("created_at ASC, id ASC").
			Find(&journals).Error; err != nil {
			return nil, err
		}
		for _, j := range journals {
			kind := model.TxTypeExpense
			if j.DebitsLedger(ledgerID) {
				kind = model.TxTypeIncome
			}
			rows = append(rows, StatementRow{
				Date:        j.Date,
				Description: j.Narration,
				Kind:        kind,
				Source:      "journal",
				SourceID:    j.ID,
				Amount:      j.Amount,
			})
		}
	}

	out := &LedgerStatement{LedgerID: ledgerID, ProjectID: projectID}
	out.TotalIncome, out.TotalExpense, out.Rows = walkRows(rows, decimal.Zero)
	out.Net = out.TotalIncome.Sub(out.TotalExpense)

	recQuery := s.db.WithContext(ctx).
		Where("ledger_id = ?", ledgerID).
		Where("approval_status NOT IN ?", model.NotEffectiveStatuses)
	if projectID != nil {
		recQuery = recQuery.Where("project_id = ?", *projectID)
	}
	var records []model.Record
	if err := recQuery.Find(&records).Error; err != nil {
		return nil, err
	}
	out.TotalReceivable, out.TotalPayable = sumOutstanding(records)

	if useCache {
		s.cachePut(ctx, key, out)
	}
	return out, nil
}

// ProjectTotals rolls up effective transactions and records for one project.
func (s *StatementService) ProjectTotals(ctx context.Context, projectID uuid.UUID) (*ProjectTotals, error) {
	var project model.Project
	if err := s.db.WithContext(ctx).First(&project, "id = ?", projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: project %s", ErrNotFound, projectID)
		}
		return nil, err
	}

	var txs []model.Transaction
	if err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Where("approval_status NOT IN ?", model.NotEffectiveStatuses).
		Find(&txs).Error; err != nil {
		return nil, err
	}

	out := &ProjectTotals{
		ProjectID:    projectID,
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
	}
	for _, t := range txs {
		if !t.IsEffective() {
			continue
		}
		if t.Type == model.TxTypeIncome {
			out.TotalIncome = out.TotalIncome.Add(t.Amount)
		} else {
			out.TotalExpense = out.TotalExpense.Add(t.Amount)
		}
	}
	out.Net = out.TotalIncome.Sub(out.TotalExpense)

	var records []model.Record
	if err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Where("approval_status NOT IN ?", model.NotEffectiveStatuses).
		Find(&records).Error; err != nil {
		return nil, err
	}
	out.TotalReceivable, out.TotalPayable = sumOutstanding(records)
	return out, nil
}

// walkRows sorts the merged sources chronologically (stable, so insertion
// order breaks ties deterministically) and computes the running balance.
func walkRows(rows []StatementRow, opening decimal.Decimal) (income, expense decimal.Decimal, out []StatementRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Date.Before(rows[j].Date)
	})

	income, expense = decimal.Zero, decimal.Zero
	balance := opening
	for i := range rows {
		if rows[i].Kind == model.TxTypeIncome {
			income = income.Add(rows[i].Amount)
			balance = balance.Add(rows[i].Amount)
		} else {
			expense = expense.Add(rows[i].Amount)
			balance = balance.Sub(rows[i].Amount)
		}
		rows[i].Balance = balance
	}
	return income, expense, rows
}

func sumOutstanding(records []model.Record) (receivable, payable decimal.Decimal) {
	receivable, payable = decimal.Zero, decimal.Zero
	for i := range records {
		r := &records[i]
		if !r.IsEffective() || r.Status == model.RecordStatusPaid {
			continue
		}
		if r.Type == model.RecordReceivable {
			receivable = receivable.Add(r.Outstanding())
		} else {
			payable = payable.Add(r.Outstanding())
		}
	}
	return receivable, payable
}

func (s *StatementService) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	if s.cache == nil {
		return nil, false
	}
	val, ok, err := s.cache.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	return val, true
}

func (s *StatementService) cachePut(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = s.cache.Set(ctx, key, payload, statementCacheTTL)
}

// --- Cache keys ---

func accountStatementKey(id uuid.UUID) string { return "statement:account:" + id.String() }
func ledgerStatementKey(id uuid.UUID) string  { return "statement:ledger:" + id.String() }

// statementCacheKeys names every cached view a staged mutation can dirty.
func statementCacheKeys(e model.StagedEntity) []string {
	switch v := e.(type) {
	case *model.Transaction:
		keys := []string{ledgerStatementKey(v.LedgerID)}
		if v.FinancialAccountID != nil {
			keys = append(keys, accountStatementKey(*v.FinancialAccountID))
		}
		return keys
	case *model.Record:
		return []string{ledgerStatementKey(v.LedgerID)}
	case *model.Ledger:
		return []string{ledgerStatementKey(v.ID)}
	case *model.Hajari:
		// Settlement approval creates a payroll transaction; the payroll
		// ledger key is unknown here, so dirty nothing and rely on TTL.
		return nil
	default:
		return nil
	}
}

// journalCacheKeys names the cached views a journal entry touches.
func journalCacheKeys(j *model.JournalEntry) []string {
	var keys []string
	if j.DebitAccountID != nil {
		keys = append(keys, accountStatementKey(*j.DebitAccountID))
	}
	if j.CreditAccountID != nil {
		keys = append(keys, accountStatementKey(*j.CreditAccountID))
	}
	if j.DebitLedgerID != nil {
		keys = append(keys, ledgerStatementKey(*j.DebitLedgerID))
	}
	if j.CreditLedgerID != nil {
		keys = append(keys, ledgerStatementKey(*j.CreditLedgerID))
	}
	return keys
}
