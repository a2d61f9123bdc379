package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mmynk/finwise/internal/calculator"
	"github.com/mmynk/finwise/internal/models"
	"github.com/mmynk/finwise/internal/storage"
)

// ReportMonths is how many months the report's trend table covers.
const ReportMonths = 6

// Exporter reads a user's records and writes them out.
type Exporter struct {
	store storage.Store
	now   func() time.Time
}

// New creates an exporter. now may be nil.
func New(store storage.Store, now func() time.Time) *Exporter {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Exporter{store: store, now: now}
}

// Transactions writes the user's transactions dated in [from, to), newest
// first. A zero bound leaves that side open.
func (e *Exporter) Transactions(ctx context.Context, w io.Writer, userID string, from, to time.Time) error {
	txns, err := e.store.Transactions().List(ctx, userID,
		storage.Query{}.Between("date", from, to).OrderBy("date", true))
	if err != nil {
		return fmt.Errorf("failed to list transactions: %w", err)
	}
	accounts, err := e.store.Accounts().List(ctx, userID, storage.Query{})
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	names := make(map[string]string, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a.Name
	}
	return WriteTransactions(w, txns, names)
}

// Accounts writes the user's accounts ordered by name.
func (e *Exporter) Accounts(ctx context.Context, w io.Writer, userID string) error {
	accounts, err := e.store.Accounts().List(ctx, userID, storage.Query{}.OrderBy("name", false))
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	return WriteAccounts(w, accounts)
}

// Summary writes the monthly totals of the last months months.
func (e *Exporter) Summary(ctx context.Context, w io.Writer, userID string, months int) error {
	now := e.now()
	from, to := calculator.TrendWindow(now, months)
	txns, err := e.store.Transactions().List(ctx, userID, storage.Query{}.Between("date", from, to))
	if err != nil {
		return fmt.Errorf("failed to list transactions: %w", err)
	}
	return WriteSummary(w, calculator.MonthlyTrend(txns, now, months))
}

// Report builds the statement for the month containing month. A zero month
// means the current one. Past months are evaluated as of their last instant.
func (e *Exporter) Report(ctx context.Context, userID string, month time.Time) (*Report, error) {
	now := e.now()
	at := now
	if !month.IsZero() {
		start, end := calculator.MonthWindow(month.In(now.Location()))
		if start.After(now) {
			return nil, &models.ValidationError{Field: "month", Message: "must not be in the future"}
		}
		if end.Before(now) {
			at = end.Add(-time.Nanosecond)
		}
	}

	user, err := e.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	currency := user.Currency
	if currency == "" {
		currency = "USD"
	}

	accounts, err := e.store.Accounts().List(ctx, userID, storage.Query{})
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	from, to := calculator.TrendWindow(at, ReportMonths)
	txns, err := e.store.Transactions().List(ctx, userID, storage.Query{}.Between("date", from, to))
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	budgets, err := e.store.Budgets().List(ctx, userID, storage.Query{})
	if err != nil {
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}
	progress := make([]calculator.BudgetProgress, 0, len(budgets))
	for _, b := range budgets {
		start, end := calculator.BudgetPeriod(b, at)
		var spent []*models.Transaction
		if start.Before(from) {
			// Yearly budgets reach past the trend window.
			if spent, err = e.store.Transactions().List(ctx, userID,
				storage.Query{}.Eq("type", models.Expense).Between("date", start, end)); err != nil {
				return nil, fmt.Errorf("failed to list expenses: %w", err)
			}
		} else {
			spent = txns
		}
		progress = append(progress, calculator.Progress(b, spent, at))
	}

	goals, err := e.store.Goals().List(ctx, userID, storage.Query{})
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	goalViews := make([]calculator.GoalProgress, len(goals))
	for i, g := range goals {
		goalViews[i] = calculator.ProgressOf(g, at)
	}

	bills, err := e.store.Bills().List(ctx, userID, storage.Query{}.Eq("isPaid", false).OrderBy("dueDate", false))
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	billViews := make([]calculator.BillView, len(bills))
	for i, b := range bills {
		billViews[i] = calculator.ViewOf(b, at)
	}

	return &Report{
		Name:      user.Name,
		Currency:  currency,
		Generated: now,
		Dashboard: calculator.BuildDashboard(accounts, txns, nil, at),
		Budgets:   progress,
		Goals:     goalViews,
		Bills:     billViews,
		Trend:     calculator.MonthlyTrend(txns, at, ReportMonths),
	}, nil
}
