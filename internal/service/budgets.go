package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/finwise/internal/calculator"
	"github.com/mmynk/finwise/internal/models"
	"github.com/mmynk/finwise/internal/storage"
)

// BudgetService manages budgets and raises alerts when spending crosses them.
type BudgetService struct {
	store         storage.Store
	crud          crud[*models.Budget]
	notifications *NotificationService
	locks         *userLocks
	now           Clock
}

func (s *BudgetService) applyDefaults(b *models.Budget) {
	if b.AlertThreshold == 0 {
		b.AlertThreshold = models.DefaultAlertThreshold
	}
	if b.StartDate.IsZero() {
		b.StartDate = calculator.StartOfDay(s.now())
	}
}

// Create stores a new budget.
func (s *BudgetService) Create(ctx context.Context, userID string, b *models.Budget) (calculator.BudgetProgress, error) {
	s.applyDefaults(b)
	b.AlertKey = ""
	if err := s.crud.create(ctx, userID, b); err != nil {
		return calculator.BudgetProgress{}, err
	}
	slog.Info("Budget created", "user_id", userID, "budget_id", b.ID, "category", b.Category)
	return s.progress(ctx, userID, b)
}

// Get returns a budget with its current spending.
func (s *BudgetService) Get(ctx context.Context, userID, id string) (calculator.BudgetProgress, error) {
	b, err := s.crud.get(ctx, userID, id)
	if err != nil {
		return calculator.BudgetProgress{}, err
	}
	return s.progress(ctx, userID, b)
}

// List returns every budget of the user with its current spending.
func (s *BudgetService) List(ctx context.Context, userID string) ([]calculator.BudgetProgress, error) {
	budgets, err := s.crud.list(ctx, userID, storage.Query{})
	if err != nil {
		return nil, err
	}
	return s.progressAll(ctx, userID, budgets)
}

// Update changes a budget. Alert state restarts so the new limits are
// evaluated from scratch. It holds the user lock so an alert recorded by a
// concurrent transaction write cannot overwrite the edit.
func (s *BudgetService) Update(ctx context.Context, userID, id string, apply func(*models.Budget) error) (calculator.BudgetProgress, error) {
	unlock := s.locks.lock(userID)
	b, err := s.crud.update(ctx, userID, id, func(b *models.Budget) error {
		if err := apply(b); err != nil {
			return err
		}
		s.applyDefaults(b)
		b.AlertKey = ""
		return nil
	})
	unlock()
	if err != nil {
		return calculator.BudgetProgress{}, err
	}
	return s.progress(ctx, userID, b)
}

// Delete removes a budget.
func (s *BudgetService) Delete(ctx context.Context, userID, id string) error {
	return s.crud.delete(ctx, userID, id)
}

// Summary totals all budgets of the user.
func (s *BudgetService) Summary(ctx context.Context, userID string) (calculator.BudgetSummary, error) {
	progress, err := s.List(ctx, userID)
	if err != nil {
		return calculator.BudgetSummary{}, err
	}
	return calculator.SummarizeBudgets(progress), nil
}

func (s *BudgetService) progress(ctx context.Context, userID string, b *models.Budget) (calculator.BudgetProgress, error) {
	all, err := s.progressAll(ctx, userID, []*models.Budget{b})
	if err != nil {
		return calculator.BudgetProgress{}, err
	}
	return all[0], nil
}

// progressAll loads the expenses covering every budget's current period in
// one query and computes each budget's progress.
func (s *BudgetService) progressAll(ctx context.Context, userID string, budgets []*models.Budget) ([]calculator.BudgetProgress, error) {
	result := make([]calculator.BudgetProgress, 0, len(budgets))
	if len(budgets) == 0 {
		return result, nil
	}

	now := s.now()
	var from, to time.Time
	for i, b := range budgets {
		start, end := calculator.BudgetPeriod(b, now)
		if i == 0 || start.Before(from) {
			from = start
		}
		if i == 0 || end.After(to) {
			to = end
		}
	}

	expenses, err := s.store.Transactions().List(ctx, userID,
		storage.Query{}.Eq("type", models.Expense).Between("date", from, to))
	if err != nil {
		return nil, fmt.Errorf("failed to load expenses: %w", err)
	}

	for _, b := range budgets {
		result = append(result, calculator.Progress(b, expenses, now))
	}
	return result, nil
}

// CheckAlerts notifies the user about budgets for category (and the "All"
// budgets) that reached their alert threshold or were exceeded. Each budget
// alerts at most once per level and period. Callers hold the user lock.
func (s *BudgetService) CheckAlerts(ctx context.Context, userID, category string) error {
	var budgets []*models.Budget
	for _, c := range []string{category, models.AllCategories} {
		found, err := s.crud.list(ctx, userID, storage.Query{}.Eq("category", c))
		if err != nil {
			return fmt.Errorf("failed to list budgets: %w", err)
		}
		budgets = append(budgets, found...)
	}

	progress, err := s.progressAll(ctx, userID, budgets)
	if err != nil {
		return err
	}

	currency := userCurrency(ctx, s.store, userID)
	for _, p := range progress {
		var level string
		switch p.Status {
		case calculator.BudgetExceeded:
			level = "exceeded"
		case calculator.BudgetWarning:
			level = "warning"
		default:
			continue
		}

		prefix := p.PeriodStart.Format(time.DateOnly) + ":"
		if p.AlertKey == prefix+level || (level == "warning" && p.AlertKey == prefix+"exceeded") {
			continue
		}

		n := &models.Notification{
			Type:  models.NotifyBudgetAlert,
			Title: fmt.Sprintf("Budget warning: %s", p.Name),
			Message: fmt.Sprintf("You have used %.0f%% of your %s budget (%s of %s).",
				p.PercentUsed, p.Name,
				calculator.FormatMoney(p.Spent, currency),
				calculator.FormatMoney(p.Amount, currency)),
			Link: "/budgets/" + p.ID,
		}
		if level == "exceeded" {
			n.Title = fmt.Sprintf("Budget exceeded: %s", p.Name)
		}
		if _, err := s.notifications.Notify(ctx, userID, n); err != nil {
			return err
		}

		p.AlertKey = prefix + level
		if err := s.store.Budgets().Update(ctx, p.Budget); err != nil {
			return fmt.Errorf("failed to record budget alert: %w", err)
		}
		slog.Info("Budget alert sent", "user_id", userID, "budget_id", p.ID, "level", level)
	}
	return nil
}

// userCurrency returns the user's currency, or USD when it cannot be read.
func userCurrency(ctx context.Context, store storage.UserStore, userID string) string {
	user, err := store.GetUserByID(ctx, userID)
	if err != nil || user.Currency == "" {
		return "USD"
	}
	return user.Currency
}
