package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sitekhata/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Overtime pays time-and-a-half on the hourly rate derived from an 8-hour day.
var (
	hoursPerDay        = decimal.NewFromInt(8)
	overtimeMultiplier = decimal.RequireFromString("1.5")
	two                = decimal.NewFromInt(2)
)

// MonthlyHajariSummary is one worker's wage position for a calendar month.
type MonthlyHajariSummary struct {
	LaborID      uuid.UUID       `json:"labor_id"`
	LaborName    string          `json:"labor_name"`
	Month        string          `json:"month"` // YYYY-MM
	PresentDays  int             `json:"present_days"`
	HalfDays     int             `json:"half_days"`
	AbsentDays   int             `json:"absent_days"`
	TotalWage    decimal.Decimal `json:"total_wage"`
	TotalUpad    decimal.Decimal `json:"total_upad"`
	FinalAmount  decimal.Decimal `json:"final_amount"`
	TotalSettled decimal.Decimal `json:"total_settled"`
	Payable      decimal.Decimal `json:"payable"`

	// HasPendingSettlement flags an unresolved payout request so clients can
	// disable the settle button.
	HasPendingSettlement bool `json:"has_pending_settlement"`
}

// HajariService computes wage math over effective attendance rows and routes
// settlement requests through the staging pipeline.
type HajariService struct {
	db      *gorm.DB
	staging *StagingService
}

func NewHajariService(db *gorm.DB, staging *StagingService) *HajariService {
	return &HajariService{db: db, staging: staging}
}

// DailyPay is the wage for one attendance row: the status share of the daily
// rate plus overtime at 1.5x the derived hourly rate. Overtime is paid even on
// an absent day when hours were logged. Settlement rows carry no wage.
func DailyPay(h *model.Hajari) decimal.Decimal {
	if h.IsSettlementRow() {
		return decimal.Zero
	}
	var base decimal.Decimal
	switch h.Status {
	case model.HajariPresent:
		base = h.Rate
	case model.HajariHalfDay:
		base = h.Rate.Div(two)
	default:
		base = decimal.Zero
	}
	if h.OvertimeHours.IsPositive() {
		hourly := h.Rate.Div(hoursPerDay)
		base = base.Add(hourly.Mul(h.OvertimeHours).Mul(overtimeMultiplier))
	}
	return base
}

// MonthlySummary aggregates one worker's effective rows for the month
// containing the given date. Pending-delete rows still count; rejected and
// pending-create rows never do.
func (s *HajariService) MonthlySummary(ctx context.Context, laborID uuid.UUID, anyDayInMonth time.Time) (*MonthlyHajariSummary, error) {
	var labor model.Labor
	if err := s.db.WithContext(ctx).First(&labor, "id = ?", laborID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: labor %s", ErrNotFound, laborID)
		}
		return nil, err
	}

	start, end := monthWindow(anyDayInMonth)
	var rows []model.Hajari
	if err := s.db.WithContext(ctx).
		Where("labor_id = ?", laborID).
		Where("date >= ? AND date < ?", start, end).
		Order("date ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := &MonthlyHajariSummary{
		LaborID:      laborID,
		LaborName:    labor.Name,
		Month:        start.Format("2006-01"),
		TotalWage:    decimal.Zero,
		TotalUpad:    decimal.Zero,
		TotalSettled: decimal.Zero,
	}
	for i := range rows {
		h := &rows[i]
		if h.IsSettlementRow() && h.ApprovalStatus != model.StatusRejected &&
			(h.Status == model.HajariPendingSettlement || h.IsPending()) {
			out.HasPendingSettlement = true
		}
		if !h.IsEffective() {
			continue
		}
		switch h.Status {
		case model.HajariSettlement:
			out.TotalSettled = out.TotalSettled.Add(h.Upad)
			continue
		case model.HajariPendingSettlement:
			// Requested but not confirmed: no cash has moved yet.
			continue
		case model.HajariPresent:
			out.PresentDays++
		case model.HajariHalfDay:
			out.HalfDays++
		case model.HajariAbsent:
			out.AbsentDays++
		}
		out.TotalWage = out.TotalWage.Add(DailyPay(h))
		out.TotalUpad = out.TotalUpad.Add(h.Upad)
	}
	out.FinalAmount = out.TotalWage.Sub(out.TotalUpad)
	out.Payable = out.FinalAmount.Sub(out.TotalSettled)
	return out, nil
}

// RequestSettlement stages a settlement for the given worker, month, and
// amount. Admins get an immediately confirmed settlement with its payout
// transaction; users get a PENDING_SETTLEMENT row awaiting review. The amount
// may not exceed the worker's current payable balance.
func (s *HajariService) RequestSettlement(ctx context.Context, laborID, projectID uuid.UUID, date time.Time, amount decimal.Decimal, actor Actor, requestMessage string) (model.StagedEntity, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: settlement amount must be positive", ErrValidation)
	}

	summary, err := s.MonthlySummary(ctx, laborID, date)
	if err != nil {
		return nil, err
	}
	if amount.GreaterThan(summary.Payable) {
		return nil, fmt.Errorf("%w: settlement amount %s exceeds payable balance %s",
			ErrValidation, amount.StringFixed(2), summary.Payable.StringFixed(2))
	}

	payload, err := json.Marshal(model.Hajari{
		LaborID:   laborID,
		ProjectID: projectID,
		Date:      date,
		Status:    model.HajariSettlement,
		Upad:      amount,
	})
	if err != nil {
		return nil, err
	}
	return s.staging.Create(ctx, EntityHajari, payload, actor, requestMessage)
}

// monthWindow returns [first of month, first of next month) in UTC.
func monthWindow(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
