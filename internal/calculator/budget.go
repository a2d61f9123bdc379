package calculator

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/finwise/internal/models"
)

// BudgetState classifies spending against a budget.
type BudgetState string

const (
	BudgetOnTrack  BudgetState = "on_track"
	BudgetWarning  BudgetState = "warning"
	BudgetExceeded BudgetState = "exceeded"
)

// BudgetProgress is a budget with its spending for the current period.
type BudgetProgress struct {
	*models.Budget

	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"`
	Spent       float64   `json:"spent"`
	Remaining   float64   `json:"remaining"`

	// PercentUsed may exceed 100; DisplayPercent is capped at 100.
	PercentUsed    float64     `json:"percentUsed"`
	DisplayPercent float64     `json:"displayPercent"`
	Status         BudgetState `json:"status"`
}

// BudgetSummary aggregates all budgets of a user.
type BudgetSummary struct {
	Count          int     `json:"count"`
	TotalBudgeted  float64 `json:"totalBudgeted"`
	TotalSpent     float64 `json:"totalSpent"`
	TotalRemaining float64 `json:"totalRemaining"`
	PercentUsed    float64 `json:"percentUsed"`
	OnTrack        int     `json:"onTrack"`
	Warning        int     `json:"warning"`
	Exceeded       int     `json:"exceeded"`
}

// Threshold returns the budget's alert threshold, applying the default.
func Threshold(b *models.Budget) float64 {
	if b.AlertThreshold <= 0 {
		return models.DefaultAlertThreshold
	}
	return b.AlertThreshold
}

// BudgetPeriod returns the period of b that contains now. Monthly and
// yearly budgets follow the calendar; weekly budgets repeat every seven
// days from StartDate (or from Monday when no start date is set).
func BudgetPeriod(b *models.Budget, now time.Time) (time.Time, time.Time) {
	switch b.Period {
	case models.PeriodYearly:
		start := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
		return start, start.AddDate(1, 0, 0)
	case models.PeriodWeekly:
		anchor := b.StartDate
		if anchor.IsZero() {
			today := StartOfDay(now)
			offset := (int(today.Weekday()) + 6) % 7
			anchor = today.AddDate(0, 0, -offset)
		}
		anchor = StartOfDay(anchor.In(now.Location()))
		days := daysBetween(anchor, now)
		weeks := days / 7
		if days < 0 && days%7 != 0 {
			weeks--
		}
		start := anchor.AddDate(0, 0, weeks*7)
		return start, start.AddDate(0, 0, 7)
	default:
		return MonthWindow(now)
	}
}

// Matches reports whether an expense counts toward the budget.
func Matches(b *models.Budget, t *models.Transaction) bool {
	if t.Type != models.Expense {
		return false
	}
	return b.Category == models.AllCategories || b.Category == t.Category
}

// Progress computes spending for the period of b containing now.
func Progress(b *models.Budget, txns []*models.Transaction, now time.Time) BudgetProgress {
	start, end := BudgetPeriod(b, now)

	spent := decimal.Zero
	for _, t := range txns {
		if Matches(b, t) && inRange(t.Date, start, end) {
			spent = spent.Add(dec(t.Amount))
		}
	}

	amount := dec(b.Amount)
	percent := percentOf(spent, amount)
	remaining := decimal.Max(amount.Sub(spent), decimal.Zero)

	status := BudgetOnTrack
	switch {
	case percent.GreaterThanOrEqual(hundred):
		status = BudgetExceeded
	case percent.GreaterThanOrEqual(dec(Threshold(b))):
		status = BudgetWarning
	}

	return BudgetProgress{
		Budget:         b,
		PeriodStart:    start,
		PeriodEnd:      end,
		Spent:          round2(spent),
		Remaining:      round2(remaining),
		PercentUsed:    round2(percent),
		DisplayPercent: round2(decimal.Min(percent, hundred)),
		Status:         status,
	}
}

// SummarizeBudgets totals a set of budget progress values.
func SummarizeBudgets(progress []BudgetProgress) BudgetSummary {
	var s BudgetSummary
	budgeted, spent, remaining := decimal.Zero, decimal.Zero, decimal.Zero
	for _, p := range progress {
		s.Count++
		budgeted = budgeted.Add(dec(p.Amount))
		spent = spent.Add(dec(p.Spent))
		remaining = remaining.Add(dec(p.Remaining))
		switch p.Status {
		case BudgetExceeded:
			s.Exceeded++
		case BudgetWarning:
			s.Warning++
		default:
			s.OnTrack++
		}
	}
	s.TotalBudgeted = round2(budgeted)
	s.TotalSpent = round2(spent)
	s.TotalRemaining = round2(remaining)
	s.PercentUsed = round2(percentOf(spent, budgeted))
	return s
}
