package calculator

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/finwise/internal/models"
)

// RecentLimit is how many recent transactions the dashboard shows.
const RecentLimit = 5

// Totals is income and expense over some window.
type Totals struct {
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Net     float64 `json:"net"`
}

// CategoryAmount is one slice of a spending breakdown.
type CategoryAmount struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Percent  float64 `json:"percent"`
}

// Dashboard is the aggregate shown on the home screen.
type Dashboard struct {
	Month           string  `json:"month"`
	TotalBalance    float64 `json:"totalBalance"`
	AccountCount    int     `json:"accountCount"`
	MonthlyIncome   float64 `json:"monthlyIncome"`
	MonthlyExpense  float64 `json:"monthlyExpense"`
	MonthlyNet      float64 `json:"monthlyNet"`
	PreviousIncome  float64 `json:"previousIncome"`
	PreviousExpense float64 `json:"previousExpense"`
	IncomeChange    float64 `json:"incomeChange"`
	ExpenseChange   float64 `json:"expenseChange"`
	SavingsRate     float64 `json:"savingsRate"`
	DaysLeftInMonth int     `json:"daysLeftInMonth"`

	SpendingByCategory []CategoryAmount      `json:"spendingByCategory"`
	RecentTransactions []*models.Transaction `json:"recentTransactions"`
}

// TotalsFor sums income and expense of the transactions dated in [from, to).
func TotalsFor(txns []*models.Transaction, from, to time.Time) Totals {
	income, expense := totals(txns, from, to)
	return Totals{
		Income:  round2(income),
		Expense: round2(expense),
		Net:     round2(income.Sub(expense)),
	}
}

func totals(txns []*models.Transaction, from, to time.Time) (income, expense decimal.Decimal) {
	income, expense = decimal.Zero, decimal.Zero
	for _, t := range txns {
		if !inRange(t.Date, from, to) {
			continue
		}
		switch t.Type {
		case models.Income:
			income = income.Add(dec(t.Amount))
		case models.Expense:
			expense = expense.Add(dec(t.Amount))
		}
	}
	return income, expense
}

// SpendingByCategory groups expenses in [from, to) by category, largest first.
// Percentages are relative to the total expense of the window.
func SpendingByCategory(txns []*models.Transaction, from, to time.Time) []CategoryAmount {
	byCategory := make(map[string]decimal.Decimal)
	total := decimal.Zero
	for _, t := range txns {
		if t.Type != models.Expense || !inRange(t.Date, from, to) {
			continue
		}
		byCategory[t.Category] = byCategory[t.Category].Add(dec(t.Amount))
		total = total.Add(dec(t.Amount))
	}

	result := make([]CategoryAmount, 0, len(byCategory))
	for category, amount := range byCategory {
		result = append(result, CategoryAmount{
			Category: category,
			Amount:   round2(amount),
			Percent:  round2(percentOf(amount, total)),
		})
	}
	slices.SortFunc(result, func(a, b CategoryAmount) int {
		if c := cmp.Compare(b.Amount, a.Amount); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})
	return result
}

// TotalBalance sums the balances of active accounts. Credit balances are
// taken as stored.
func TotalBalance(accounts []*models.Account) float64 {
	total := decimal.Zero
	for _, a := range accounts {
		if a.IsActive {
			total = total.Add(dec(a.Balance))
		}
	}
	return round2(total)
}

// BuildDashboard aggregates the current and previous month around now.
// txns must cover at least both months; recent is shown as given, newest
// first, up to RecentLimit entries. Missing data yields zero values.
func BuildDashboard(accounts []*models.Account, txns, recent []*models.Transaction, now time.Time) *Dashboard {
	start, end := MonthWindow(now)
	prevStart, _ := MonthWindow(start.AddDate(0, 0, -1))

	income, expense := totals(txns, start, end)
	prevIncome, prevExpense := totals(txns, prevStart, start)

	active := 0
	for _, a := range accounts {
		if a.IsActive {
			active++
		}
	}

	recent = slices.Clone(recent)
	slices.SortStableFunc(recent, func(a, b *models.Transaction) int {
		return b.Date.Compare(a.Date)
	})
	if len(recent) > RecentLimit {
		recent = recent[:RecentLimit]
	}
	if recent == nil {
		recent = []*models.Transaction{}
	}

	return &Dashboard{
		Month:              start.Format("2006-01"),
		TotalBalance:       TotalBalance(accounts),
		AccountCount:       active,
		MonthlyIncome:      round2(income),
		MonthlyExpense:     round2(expense),
		MonthlyNet:         round2(income.Sub(expense)),
		PreviousIncome:     round2(prevIncome),
		PreviousExpense:    round2(prevExpense),
		IncomeChange:       PercentChange(income.InexactFloat64(), prevIncome.InexactFloat64()),
		ExpenseChange:      PercentChange(expense.InexactFloat64(), prevExpense.InexactFloat64()),
		SavingsRate:        round2(percentOf(income.Sub(expense), income)),
		DaysLeftInMonth:    DaysLeftInMonth(now),
		SpendingByCategory: SpendingByCategory(txns, start, end),
		RecentTransactions: recent,
	}
}
