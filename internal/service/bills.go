package service

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/mmynk/finwise/internal/calculator"
	"github.com/mmynk/finwise/internal/models"
	"github.com/mmynk/finwise/internal/storage"
)

// BillCategory is used for bill payments whose category is not an expense category.
const BillCategory = "Bills & Utilities"

// BillService manages bills, payments and recurrence.
type BillService struct {
	crud         crud[*models.Bill]
	transactions *TransactionService
	locks        *userLocks
	now          Clock
}

// PayResult describes what paying a bill did.
type PayResult struct {
	Bill        calculator.BillView  `json:"bill"`
	Next        *calculator.BillView `json:"next,omitempty"`
	Transaction *models.Transaction  `json:"transaction,omitempty"`
}

func (s *BillService) view(b *models.Bill) calculator.BillView {
	return calculator.ViewOf(b, s.now())
}

// Create stores a new, unpaid bill.
func (s *BillService) Create(ctx context.Context, userID string, b *models.Bill) (calculator.BillView, error) {
	if b.Frequency == "" {
		b.Frequency = models.FrequencyOnce
	}
	if b.Category == "" {
		b.Category = BillCategory
	}
	b.IsPaid = false
	b.PaidAt = nil
	if err := s.crud.create(ctx, userID, b); err != nil {
		return calculator.BillView{}, err
	}
	slog.Info("Bill created", "user_id", userID, "bill_id", b.ID, "due", b.DueDate)
	return s.view(b), nil
}

// Get returns a bill with its derived status.
func (s *BillService) Get(ctx context.Context, userID, id string) (calculator.BillView, error) {
	b, err := s.crud.get(ctx, userID, id)
	if err != nil {
		return calculator.BillView{}, err
	}
	return s.view(b), nil
}

// List returns the user's bills by due date. A non-empty status keeps only
// bills currently in that status.
func (s *BillService) List(ctx context.Context, userID string, status models.BillStatus) ([]calculator.BillView, error) {
	if status != "" && !slices.Contains(models.BillStatuses, status) {
		return nil, invalid("status", "must be one of: paid, overdue, upcoming")
	}

	bills, err := s.crud.list(ctx, userID, storage.Query{}.OrderBy("dueDate", false))
	if err != nil {
		return nil, err
	}

	result := make([]calculator.BillView, 0, len(bills))
	for _, b := range bills {
		v := s.view(b)
		if status == "" || v.Status == status {
			result = append(result, v)
		}
	}
	slices.SortStableFunc(result, func(a, b calculator.BillView) int {
		return cmp.Compare(a.DueDate.Unix(), b.DueDate.Unix())
	})
	return result, nil
}

// Update changes a bill. Payment state changes only through Pay.
func (s *BillService) Update(ctx context.Context, userID, id string, apply func(*models.Bill) error) (calculator.BillView, error) {
	b, err := s.crud.update(ctx, userID, id, func(b *models.Bill) error {
		paid, paidAt := b.IsPaid, b.PaidAt
		if err := apply(b); err != nil {
			return err
		}
		b.IsPaid, b.PaidAt = paid, paidAt
		return nil
	})
	if err != nil {
		return calculator.BillView{}, err
	}
	return s.view(b), nil
}

// Delete removes a bill.
func (s *BillService) Delete(ctx context.Context, userID, id string) error {
	return s.crud.delete(ctx, userID, id)
}

// Pay marks a bill paid. When accountID (or the bill's own account) is set
// an expense is booked against it; recurring bills get their next
// occurrence created.
func (s *BillService) Pay(ctx context.Context, userID, id, accountID string) (*PayResult, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	b, err := s.crud.get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if b.IsPaid {
		return nil, invalid("isPaid", "bill is already paid")
	}
	meta := *b.Meta()
	now := s.now()
	result := &PayResult{}

	if accountID == "" {
		accountID = b.AccountID
	}
	if accountID != "" {
		category := b.Category
		if !slices.Contains(models.ExpenseCategories, category) {
			category = BillCategory
		}
		txn := &models.Transaction{
			AccountID:   accountID,
			Type:        models.Expense,
			Amount:      b.Amount,
			Category:    category,
			Description: "Bill payment: " + b.Name,
			Date:        now,
		}
		if err := s.transactions.create(ctx, userID, txn); err != nil {
			return nil, err
		}
		result.Transaction = txn
		b.AccountID = accountID
	}

	b.IsPaid = true
	b.PaidAt = &now
	if err := s.crud.save(ctx, b, meta); err != nil {
		return nil, err
	}
	result.Bill = s.view(b)

	if due, ok := calculator.NextDueDate(b); ok {
		next := &models.Bill{
			Name:         b.Name,
			Amount:       b.Amount,
			DueDate:      due,
			Category:     b.Category,
			Frequency:    b.Frequency,
			AutoPay:      b.AutoPay,
			ReminderDays: b.ReminderDays,
			AccountID:    b.AccountID,
		}
		if err := s.crud.create(ctx, userID, next); err != nil {
			return nil, fmt.Errorf("failed to schedule next bill: %w", err)
		}
		v := s.view(next)
		result.Next = &v
	}

	slog.Info("Bill paid", "user_id", userID, "bill_id", id, "amount", b.Amount, "account_id", accountID)

	if result.Transaction != nil {
		s.transactions.afterWrite(ctx, userID, result.Transaction)
	}
	return result, nil
}

// Summary counts and totals the user's bills by status.
func (s *BillService) Summary(ctx context.Context, userID string) (calculator.BillSummary, error) {
	bills, err := s.crud.list(ctx, userID, storage.Query{})
	if err != nil {
		return calculator.BillSummary{}, err
	}
	return calculator.SummarizeBills(bills, s.now()), nil
}
