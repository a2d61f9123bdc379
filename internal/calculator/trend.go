package calculator

import (
	"time"

	"github.com/mmynk/finwise/internal/models"
)

// MonthSummary is one month of a trend report.
type MonthSummary struct {
	Month       string           `json:"month"`
	Income      float64          `json:"income"`
	Expense     float64          `json:"expense"`
	Net         float64          `json:"net"`
	SavingsRate float64          `json:"savingsRate"`
	TopCategory *CategoryAmount  `json:"topCategory,omitempty"`
	Categories  []CategoryAmount `json:"categories"`
}

// TrendWindow returns the window covering the last months months up to and
// including the month of now.
func TrendWindow(now time.Time, months int) (time.Time, time.Time) {
	start, end := MonthWindow(now)
	return start.AddDate(0, -(months - 1), 0), end
}

// MonthlyTrend summarizes each of the last months months, oldest first.
func MonthlyTrend(txns []*models.Transaction, now time.Time, months int) []MonthSummary {
	if months < 1 {
		months = 1
	}
	from, _ := TrendWindow(now, months)

	result := make([]MonthSummary, 0, months)
	for i := 0; i < months; i++ {
		start := from.AddDate(0, i, 0)
		end := start.AddDate(0, 1, 0)
		income, expense := totals(txns, start, end)

		summary := MonthSummary{
			Month:       start.Format("2006-01"),
			Income:      round2(income),
			Expense:     round2(expense),
			Net:         round2(income.Sub(expense)),
			SavingsRate: round2(percentOf(income.Sub(expense), income)),
			Categories:  SpendingByCategory(txns, start, end),
		}
		if len(summary.Categories) > 0 {
			top := summary.Categories[0]
			summary.TopCategory = &top
		}
		result = append(result, summary)
	}
	return result
}
