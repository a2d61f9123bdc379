// Package insights implements the finance assistant.
//
// The assistant never sees raw records. A Snapshot of the user's current
// aggregates (month totals, top spending categories, budgets at risk,
// upcoming bills, goals) is collected from the store and handed to a Model,
// which either asks Gemini or applies fixed rules.
package insights

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mmynk/finwise/internal/calculator"
	"github.com/mmynk/finwise/internal/models"
	"github.com/mmynk/finwise/internal/storage"
)

// TopCategories is how many spending categories a snapshot keeps.
const TopCategories = 3

// Snapshot is the aggregate view of a user's finances given to a Model.
type Snapshot struct {
	Month        string                      `json:"month"`
	Currency     string                      `json:"currency"`
	Role         models.Role                 `json:"role"`
	TotalBalance float64                     `json:"totalBalance"`
	Income       float64                     `json:"income"`
	Expense      float64                     `json:"expense"`
	Net          float64                     `json:"net"`
	SavingsRate  float64                     `json:"savingsRate"`
	Top          []calculator.CategoryAmount `json:"topCategories"`
	AtRisk       []BudgetRisk                `json:"budgetsAtRisk"`
	Upcoming     []BillDue                   `json:"upcomingBills"`
	Goals        calculator.GoalSummary      `json:"goals"`
}

// BudgetRisk is a budget at or above its alert threshold.
type BudgetRisk struct {
	Name        string                 `json:"name"`
	Category    string                 `json:"category"`
	PercentUsed float64                `json:"percentUsed"`
	Status      calculator.BudgetState `json:"status"`
}

// BillDue is an unpaid bill that is overdue or inside its reminder window.
type BillDue struct {
	Name         string            `json:"name"`
	Amount       float64           `json:"amount"`
	DueDate      time.Time         `json:"dueDate"`
	DaysUntilDue int               `json:"daysUntilDue"`
	Status       models.BillStatus `json:"status"`
}

// Collect builds a snapshot for userID. Query failures are logged and leave
// the matching part of the snapshot empty.
func Collect(ctx context.Context, store storage.Store, userID string, now time.Time) Snapshot {
	start, end := calculator.MonthWindow(now)
	s := Snapshot{Month: start.Format("2006-01"), Currency: "USD", Role: models.RoleIndividual}

	if user, err := store.GetUserByID(ctx, userID); err == nil {
		s.Role = user.Role
		if user.Currency != "" {
			s.Currency = user.Currency
		}
	}

	accounts, err := store.Accounts().List(ctx, userID, storage.Query{})
	if err != nil {
		slog.Error("Insights accounts query failed", "user_id", userID, "error", err)
	}
	s.TotalBalance = calculator.TotalBalance(accounts)

	txns, err := store.Transactions().List(ctx, userID, storage.Query{}.Between("date", start, end))
	if err != nil {
		slog.Error("Insights transactions query failed", "user_id", userID, "error", err)
	}
	totals := calculator.TotalsFor(txns, start, end)
	s.Income, s.Expense, s.Net = totals.Income, totals.Expense, totals.Net
	if s.Income > 0 {
		s.SavingsRate = calculator.Round(s.Net / s.Income * 100)
	}
	categories := calculator.SpendingByCategory(txns, start, end)
	s.Top = categories[:min(len(categories), TopCategories)]

	s.AtRisk = budgetsAtRisk(ctx, store, userID, now)
	s.Upcoming = billsDue(ctx, store, userID, now)

	goals, err := store.Goals().List(ctx, userID, storage.Query{})
	if err != nil {
		slog.Error("Insights goals query failed", "user_id", userID, "error", err)
	}
	s.Goals = calculator.SummarizeGoals(goals)
	return s
}

func budgetsAtRisk(ctx context.Context, store storage.Store, userID string, now time.Time) []BudgetRisk {
	budgets, err := store.Budgets().List(ctx, userID, storage.Query{})
	if err != nil || len(budgets) == 0 {
		if err != nil {
			slog.Error("Insights budgets query failed", "user_id", userID, "error", err)
		}
		return nil
	}

	// The widest window covers every budget; yearly periods start earliest.
	from := now
	for _, b := range budgets {
		if start, _ := calculator.BudgetPeriod(b, now); start.Before(from) {
			from = start
		}
	}
	expenses, err := store.Transactions().List(ctx, userID,
		storage.Query{}.Eq("type", string(models.Expense)).Between("date", from, time.Time{}))
	if err != nil {
		slog.Error("Insights expenses query failed", "user_id", userID, "error", err)
	}

	var risks []BudgetRisk
	for _, b := range budgets {
		p := calculator.Progress(b, expenses, now)
		if p.Status == calculator.BudgetOnTrack {
			continue
		}
		risks = append(risks, BudgetRisk{Name: b.Name, Category: b.Category, PercentUsed: p.PercentUsed, Status: p.Status})
	}
	return risks
}

func billsDue(ctx context.Context, store storage.Store, userID string, now time.Time) []BillDue {
	bills, err := store.Bills().List(ctx, userID,
		storage.Query{}.Eq("isPaid", false).OrderBy("dueDate", false))
	if err != nil {
		slog.Error("Insights bills query failed", "user_id", userID, "error", err)
		return nil
	}
	var due []BillDue
	for _, b := range bills {
		if !calculator.NeedsReminder(b, now) {
			continue
		}
		v := calculator.ViewOf(b, now)
		due = append(due, BillDue{Name: b.Name, Amount: b.Amount, DueDate: b.DueDate, DaysUntilDue: v.DaysUntilDue, Status: v.Status})
	}
	return due
}

// Markdown renders the snapshot as the context block of a prompt.
func (s Snapshot) Markdown() string {
	money := func(v float64) string { return calculator.FormatMoney(v, s.Currency) }

	var b strings.Builder
	fmt.Fprintf(&b, "## Finances for %s (%s user)\n\n", s.Month, s.Role)
	fmt.Fprintf(&b, "- Total balance: %s\n", money(s.TotalBalance))
	fmt.Fprintf(&b, "- Income: %s\n- Expenses: %s\n- Net: %s\n", money(s.Income), money(s.Expense), money(s.Net))
	fmt.Fprintf(&b, "- Savings rate: %.1f%%\n", s.SavingsRate)

	if len(s.Top) > 0 {
		b.WriteString("\n### Top spending categories\n\n")
		for _, c := range s.Top {
			fmt.Fprintf(&b, "- %s: %s (%.1f%%)\n", c.Category, money(c.Amount), c.Percent)
		}
	}
	if len(s.AtRisk) > 0 {
		b.WriteString("\n### Budgets at risk\n\n")
		for _, r := range s.AtRisk {
			fmt.Fprintf(&b, "- %s (%s): %.1f%% used, %s\n", r.Name, r.Category, r.PercentUsed, r.Status)
		}
	}
	if len(s.Upcoming) > 0 {
		b.WriteString("\n### Bills needing attention\n\n")
		for _, d := range s.Upcoming {
			fmt.Fprintf(&b, "- %s: %s due %s (%s)\n", d.Name, money(d.Amount), d.DueDate.Format(time.DateOnly), d.Status)
		}
	}
	if s.Goals.Count > 0 {
		fmt.Fprintf(&b, "\n### Goals\n\n- %d active, %d completed, %.1f%% saved overall\n",
			s.Goals.Active, s.Goals.Completed, s.Goals.Progress)
	}
	return b.String()
}
