package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mmynk/finwise/internal/models"
	"github.com/mmynk/finwise/internal/storage"
)

// TransactionService books income and expenses against accounts.
type TransactionService struct {
	crud     crud[*models.Transaction]
	accounts *AccountService
	budgets  *BudgetService
	locks    *userLocks
}

// TransactionFilter narrows a transaction listing. Zero values match all.
type TransactionFilter struct {
	Type      models.TransactionType
	Category  string
	AccountID string
	From      time.Time
	To        time.Time
	Limit     int
}

func (f TransactionFilter) query() storage.Query {
	q := storage.Query{}.OrderBy("date", true)
	if f.Type != "" {
		q = q.Eq("type", f.Type)
	}
	if f.Category != "" {
		q = q.Eq("category", f.Category)
	}
	if f.AccountID != "" {
		q = q.Eq("accountId", f.AccountID)
	}
	if !f.From.IsZero() || !f.To.IsZero() {
		q = q.Between("date", f.From, f.To)
	}
	q.Limit = f.Limit
	return q
}

// checkAccount verifies the account exists and belongs to the user.
func (s *TransactionService) checkAccount(ctx context.Context, userID, accountID string) error {
	if accountID == "" {
		return invalid("accountId", "is required")
	}
	if _, err := s.accounts.Get(ctx, userID, accountID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return invalid("accountId", "does not match any of your accounts")
		}
		return err
	}
	return nil
}

// Create books a transaction and moves its account balance.
func (s *TransactionService) Create(ctx context.Context, userID string, txn *models.Transaction) error {
	unlock := s.locks.lock(userID)
	defer unlock()

	if err := s.create(ctx, userID, txn); err != nil {
		return err
	}
	s.afterWrite(ctx, userID, txn)
	return nil
}

// create does the work of Create for callers already holding the user lock.
func (s *TransactionService) create(ctx context.Context, userID string, txn *models.Transaction) error {
	if err := txn.Validate(); err != nil {
		return err
	}
	if err := s.checkAccount(ctx, userID, txn.AccountID); err != nil {
		return err
	}
	if err := s.crud.create(ctx, userID, txn); err != nil {
		return err
	}
	if err := s.accounts.adjustBalance(ctx, userID, txn.AccountID, txn.Signed()); err != nil {
		return err
	}

	slog.Info("Transaction created",
		"user_id", userID,
		"transaction_id", txn.ID,
		"type", txn.Type,
		"amount", txn.Amount,
	)
	return nil
}

// afterWrite runs the budget checks for an expense. Failures are logged;
// the transaction itself is already stored.
func (s *TransactionService) afterWrite(ctx context.Context, userID string, txn *models.Transaction) {
	if txn.Type != models.Expense {
		return
	}
	if err := s.budgets.CheckAlerts(ctx, userID, txn.Category); err != nil {
		slog.Error("Budget alert check failed", "user_id", userID, "error", err)
	}
}

// Get returns one transaction of the user.
func (s *TransactionService) Get(ctx context.Context, userID, id string) (*models.Transaction, error) {
	return s.crud.get(ctx, userID, id)
}

// List returns the user's transactions, newest first.
func (s *TransactionService) List(ctx context.Context, userID string, filter TransactionFilter) ([]*models.Transaction, error) {
	return s.crud.list(ctx, userID, filter.query())
}

// Update changes a transaction, reversing its old effect on the account
// balance and applying the new one (possibly on another account).
func (s *TransactionService) Update(ctx context.Context, userID, id string, apply func(*models.Transaction) error) (*models.Transaction, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	txn, err := s.crud.get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	before := *txn
	meta := *txn.Meta()

	if err := apply(txn); err != nil {
		return nil, err
	}
	if err := txn.Validate(); err != nil {
		return nil, err
	}
	if txn.AccountID != before.AccountID {
		if err := s.checkAccount(ctx, userID, txn.AccountID); err != nil {
			return nil, err
		}
	}
	if err := s.crud.save(ctx, txn, meta); err != nil {
		return nil, err
	}

	if txn.AccountID == before.AccountID {
		err = s.accounts.adjustBalance(ctx, userID, txn.AccountID, addAmounts(txn.Signed(), -before.Signed()))
	} else {
		err = s.accounts.adjustBalance(ctx, userID, before.AccountID, -before.Signed())
		if err == nil {
			err = s.accounts.adjustBalance(ctx, userID, txn.AccountID, txn.Signed())
		}
	}
	if err != nil {
		return nil, err
	}

	slog.Info("Transaction updated", "user_id", userID, "transaction_id", id)
	s.afterWrite(ctx, userID, txn)
	return txn, nil
}

// Delete removes a transaction and reverses its effect on the balance.
func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	unlock := s.locks.lock(userID)
	defer unlock()

	txn, err := s.crud.get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.crud.delete(ctx, userID, id); err != nil {
		return err
	}

	err = s.accounts.adjustBalance(ctx, userID, txn.AccountID, -txn.Signed())
	if errors.Is(err, storage.ErrNotFound) {
		// Account already gone; nothing to reverse.
		err = nil
	}
	if err != nil {
		return err
	}

	slog.Info("Transaction deleted", "user_id", userID, "transaction_id", id)
	return nil
}
