package service

import (
	"context"
	"log/slog"

	"github.com/mmynk/finwise/internal/calculator"
	"github.com/mmynk/finwise/internal/models"
	"github.com/mmynk/finwise/internal/storage"
	"github.com/mmynk/finwise/internal/views"
)

// MaxTrendMonths bounds the monthly report.
const MaxTrendMonths = 24

// DashboardService builds read-only aggregates. Failed queries degrade to
// empty data; they are logged but never returned.
type DashboardService struct {
	store storage.Store
	now   Clock
}

// DashboardResponse is the aggregate together with its role presentation.
type DashboardResponse struct {
	*calculator.Dashboard
	Currency string     `json:"currency"`
	View     views.View `json:"view"`
}

// Dashboard aggregates the user's current month.
func (s *DashboardService) Dashboard(ctx context.Context, userID string) *DashboardResponse {
	now := s.now()
	start, end := calculator.MonthWindow(now)
	prevStart, _ := calculator.MonthWindow(start.AddDate(0, 0, -1))

	accounts, err := s.store.Accounts().List(ctx, userID, storage.Query{})
	if err != nil {
		slog.Error("Dashboard accounts query failed", "user_id", userID, "error", err)
	}
	txns, err := s.store.Transactions().List(ctx, userID, storage.Query{}.Between("date", prevStart, end))
	if err != nil {
		slog.Error("Dashboard transactions query failed", "user_id", userID, "error", err)
	}
	recent, err := s.store.Transactions().List(ctx, userID,
		storage.Query{Limit: calculator.RecentLimit}.OrderBy("date", true))
	if err != nil {
		slog.Error("Dashboard recent transactions query failed", "user_id", userID, "error", err)
	}

	role := models.RoleIndividual
	currency := "USD"
	if user, err := s.store.GetUserByID(ctx, userID); err == nil {
		role = user.Role
		if user.Currency != "" {
			currency = user.Currency
		}
	}

	d := calculator.BuildDashboard(accounts, txns, recent, now)
	return &DashboardResponse{
		Dashboard: d,
		Currency:  currency,
		View:      views.For(role).Render(d, currency),
	}
}

// MonthlyReport summarizes the last months months, oldest first.
func (s *DashboardService) MonthlyReport(ctx context.Context, userID string, months int) []calculator.MonthSummary {
	months = min(max(months, 1), MaxTrendMonths)
	now := s.now()
	from, to := calculator.TrendWindow(now, months)

	txns, err := s.store.Transactions().List(ctx, userID, storage.Query{}.Between("date", from, to))
	if err != nil {
		slog.Error("Monthly report query failed", "user_id", userID, "error", err)
	}
	return calculator.MonthlyTrend(txns, now, months)
}
