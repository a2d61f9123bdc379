// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
//
// Records are stored as JSON documents and filtered with json_extract, so the
// same storage.Query works here and against MongoDB.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/finwise/internal/models"
	"github.com/mmynk/finwise/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB

	accounts      *collection[*models.Account]
	transactions  *collection[*models.Transaction]
	budgets       *collection[*models.Budget]
	goals         *collection[*models.Goal]
	bills         *collection[*models.Bill]
	investments   *collection[*models.Investment]
	notifications *collection[*models.Notification]
	conversations *collection[*models.AIConversation]
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection serializes writers and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{
		db:            db,
		accounts:      newCollection(db, "accounts", func() *models.Account { return &models.Account{} }),
		transactions:  newCollection(db, "transactions", func() *models.Transaction { return &models.Transaction{} }),
		budgets:       newCollection(db, "budgets", func() *models.Budget { return &models.Budget{} }),
		goals:         newCollection(db, "goals", func() *models.Goal { return &models.Goal{} }),
		bills:         newCollection(db, "bills", func() *models.Bill { return &models.Bill{} }),
		investments:   newCollection(db, "investments", func() *models.Investment { return &models.Investment{} }),
		notifications: newCollection(db, "notifications", func() *models.Notification { return &models.Notification{} }),
		conversations: newCollection(db, "ai_conversations", func() *models.AIConversation { return &models.AIConversation{} }),
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Accounts() storage.Collection[*models.Account]         { return s.accounts }
func (s *SQLiteStore) Transactions() storage.Collection[*models.Transaction] { return s.transactions }
func (s *SQLiteStore) Budgets() storage.Collection[*models.Budget]           { return s.budgets }
func (s *SQLiteStore) Goals() storage.Collection[*models.Goal]               { return s.goals }
func (s *SQLiteStore) Bills() storage.Collection[*models.Bill]               { return s.bills }
func (s *SQLiteStore) Investments() storage.Collection[*models.Investment]   { return s.investments }
func (s *SQLiteStore) Notifications() storage.Collection[*models.Notification] {
	return s.notifications
}
func (s *SQLiteStore) Conversations() storage.Collection[*models.AIConversation] {
	return s.conversations
}
