package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmynk/finwise/internal/models"
	"github.com/mmynk/finwise/internal/storage"
)

// AccountService manages accounts and their balances.
type AccountService struct {
	store storage.Store
	crud  crud[*models.Account]
	locks *userLocks
}

// Create stores a new account. An empty currency defaults to the user's.
func (s *AccountService) Create(ctx context.Context, userID string, account *models.Account) error {
	if account.Currency == "" {
		if user, err := s.store.GetUserByID(ctx, userID); err == nil {
			account.Currency = user.Currency
		}
	}
	if err := s.crud.create(ctx, userID, account); err != nil {
		return err
	}
	slog.Info("Account created", "user_id", userID, "account_id", account.ID, "type", account.Type)
	return nil
}

// Get returns one account of the user.
func (s *AccountService) Get(ctx context.Context, userID, id string) (*models.Account, error) {
	return s.crud.get(ctx, userID, id)
}

// List returns the user's accounts, oldest first.
func (s *AccountService) List(ctx context.Context, userID string) ([]*models.Account, error) {
	return s.crud.list(ctx, userID, storage.Query{})
}

// Update applies changes to an account. The balance only moves through
// transactions, so edits to it are ignored.
func (s *AccountService) Update(ctx context.Context, userID, id string, apply func(*models.Account) error) (*models.Account, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	return s.crud.update(ctx, userID, id, func(a *models.Account) error {
		balance := a.Balance
		if err := apply(a); err != nil {
			return err
		}
		a.Balance = balance
		return nil
	})
}

// Delete removes an account together with all of its transactions.
func (s *AccountService) Delete(ctx context.Context, userID, id string) error {
	unlock := s.locks.lock(userID)
	defer unlock()

	if _, err := s.crud.get(ctx, userID, id); err != nil {
		return err
	}

	removed, err := s.store.Transactions().DeleteWhere(ctx, userID, storage.Query{}.Eq("accountId", id))
	if err != nil {
		return fmt.Errorf("failed to delete transactions of account: %w", err)
	}
	if err := s.crud.delete(ctx, userID, id); err != nil {
		return err
	}

	slog.Info("Account deleted", "user_id", userID, "account_id", id, "transactions_removed", removed)
	return nil
}

// adjustBalance adds delta to the account balance. Callers hold the user lock.
func (s *AccountService) adjustBalance(ctx context.Context, userID, accountID string, delta float64) error {
	if delta == 0 {
		return nil
	}
	account, err := s.crud.get(ctx, userID, accountID)
	if err != nil {
		return err
	}
	account.Balance = addAmounts(account.Balance, delta)
	if err := s.store.Accounts().Update(ctx, account); err != nil {
		return fmt.Errorf("failed to update account balance: %w", err)
	}
	return nil
}
