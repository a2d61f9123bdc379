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

// ReminderService sends bill reminders and settles auto-pay bills. It runs
// across all users and is driven by the scheduler or the CLI.
type ReminderService struct {
	store         storage.Store
	bills         *BillService
	notifications *NotificationService
	now           Clock
}

// SweepResult reports what one sweep did.
type SweepResult struct {
	Reminders int
	AutoPaid  int
	Failed    int
}

// Sweep looks at every unpaid bill. Auto-pay bills that are due get paid;
// the others receive at most one reminder per bill per day while overdue or
// within their reminder window. One failing bill does not stop the sweep.
func (s *ReminderService) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	bills, err := s.store.Bills().Scan(ctx, storage.Query{}.Eq("isPaid", false))
	if err != nil {
		return result, fmt.Errorf("failed to scan bills: %w", err)
	}

	now := s.now()
	for _, b := range bills {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if !calculator.NeedsReminder(b, now) {
			continue
		}

		view := calculator.ViewOf(b, now)
		if b.AutoPay && b.AccountID != "" && view.DaysUntilDue <= 0 {
			if _, err := s.bills.Pay(ctx, b.UserID, b.ID, ""); err != nil {
				slog.Error("Auto-pay failed", "user_id", b.UserID, "bill_id", b.ID, "error", err)
				result.Failed++
				continue
			}
			result.AutoPaid++
			s.notify(ctx, b, &models.Notification{
				Type:    models.NotifyBillReminder,
				Title:   fmt.Sprintf("Bill paid automatically: %s", b.Name),
				Message: fmt.Sprintf("%s was paid from your account.", b.Name),
				Link:    "/bills/" + b.ID,
				Ref:     "autopay:" + b.ID,
			})
			continue
		}

		created := s.notify(ctx, b, reminderFor(view, now))
		if created {
			result.Reminders++
		}
	}

	slog.Info("Reminder sweep finished",
		"bills", len(bills),
		"reminders", result.Reminders,
		"auto_paid", result.AutoPaid,
		"failed", result.Failed,
	)
	return result, nil
}

func (s *ReminderService) notify(ctx context.Context, b *models.Bill, n *models.Notification) bool {
	created, err := s.notifications.Notify(ctx, b.UserID, n)
	if err != nil {
		slog.Error("Failed to send bill reminder", "user_id", b.UserID, "bill_id", b.ID, "error", err)
		return false
	}
	return created
}

// reminderFor builds the reminder for a bill; the ref makes it unique per day.
func reminderFor(v calculator.BillView, now time.Time) *models.Notification {
	n := &models.Notification{
		Type: models.NotifyBillReminder,
		Link: "/bills/" + v.ID,
		Ref:  fmt.Sprintf("bill:%s:%s", v.ID, now.Format(time.DateOnly)),
	}
	due := v.DueDate.Format("Jan 2")
	switch {
	case v.Status == models.BillOverdue:
		n.Title = fmt.Sprintf("Bill overdue: %s", v.Name)
		n.Message = fmt.Sprintf("%s was due on %s.", v.Name, due)
	case v.DaysUntilDue == 0:
		n.Title = fmt.Sprintf("Bill due today: %s", v.Name)
		n.Message = fmt.Sprintf("%s is due today.", v.Name)
	default:
		n.Title = fmt.Sprintf("Bill due soon: %s", v.Name)
		n.Message = fmt.Sprintf("%s is due on %s, in %d days.", v.Name, due, v.DaysUntilDue)
	}
	return n
}
