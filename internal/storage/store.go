// Package storage provides abstractions for persistent document storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/finwise/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist or belongs to another user.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a unique key (e.g. user email) is already taken.
	ErrDuplicate = errors.New("record already exists")
)

// Store defines the storage operations for every resource.
// This abstraction allows swapping document stores (MongoDB, SQLite)
// without changing the service layer.
type Store interface {
	UserStore

	Accounts() Collection[*models.Account]
	Transactions() Collection[*models.Transaction]
	Budgets() Collection[*models.Budget]
	Goals() Collection[*models.Goal]
	Bills() Collection[*models.Bill]
	Investments() Collection[*models.Investment]
	Notifications() Collection[*models.Notification]
	Conversations() Collection[*models.AIConversation]

	// Close releases any resources held by the store.
	Close() error
}

// UserStore persists user accounts.
type UserStore interface {
	// CreateUser inserts a user. Returns ErrDuplicate if the email is taken.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail returns ErrNotFound if no user has that email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID returns ErrNotFound if the user does not exist.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// UpdateUser replaces the stored user. Returns ErrNotFound if missing.
	UpdateUser(ctx context.Context, user *models.User) error
}

// Collection is a set of documents of one kind, each owned by a user.
// Every operation taking a userID only sees that user's documents.
type Collection[T models.Document] interface {
	// Insert stores a new document. The ID and timestamps are filled in
	// when empty. doc.Meta().UserID must be set.
	Insert(ctx context.Context, doc T) error

	// Get returns ErrNotFound if the document is missing or owned by someone else.
	Get(ctx context.Context, userID, id string) (T, error)

	List(ctx context.Context, userID string, q Query) ([]T, error)

	// Update replaces a stored document matched by ID and owner.
	Update(ctx context.Context, doc T) error

	Delete(ctx context.Context, userID, id string) error

	// DeleteWhere removes the owner's documents matching q.Where and
	// returns how many were removed.
	DeleteWhere(ctx context.Context, userID string, q Query) (int64, error)

	// Scan lists documents across all owners. Used by background jobs.
	Scan(ctx context.Context, q Query) ([]T, error)
}

// Query filters, orders and limits a listing.
type Query struct {
	// Where holds equality filters keyed by document field name.
	Where map[string]any

	// DateField, when set, restricts results to From <= field < To.
	// A zero From or To leaves that side open.
	DateField string
	From      time.Time
	To        time.Time

	// SortBy defaults to creation time.
	SortBy string
	Desc   bool

	// Limit of 0 means no limit.
	Limit int
}

// Eq returns a copy of q with an added equality filter.
func (q Query) Eq(field string, value any) Query {
	where := make(map[string]any, len(q.Where)+1)
	maps.Copy(where, q.Where)
	where[field] = value
	q.Where = where
	return q
}

// Between returns a copy of q restricted to from <= field < to.
func (q Query) Between(field string, from, to time.Time) Query {
	q.DateField = field
	q.From = from
	q.To = to
	return q
}

// OrderBy returns a copy of q sorted on field.
func (q Query) OrderBy(field string, desc bool) Query {
	q.SortBy = field
	q.Desc = desc
	return q
}

var fieldName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Validate checks that every field name is a plain identifier.
// Backends embed field names in queries, so nothing else is accepted.
func (q Query) Validate() error {
	for field := range q.Where {
		if !fieldName.MatchString(field) {
			return fmt.Errorf("invalid filter field %q", field)
		}
	}
	for _, field := range []string{q.DateField, q.SortBy} {
		if field != "" && !fieldName.MatchString(field) {
			return fmt.Errorf("invalid query field %q", field)
		}
	}
	return nil
}

// Stamp fills in the ID and timestamps of a document about to be inserted.
func Stamp(doc models.Document, now time.Time) {
	meta := doc.Meta()
	if meta.ID == "" {
		meta.ID = uuid.New().String()
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = now
	}
	meta.UpdatedAt = now
}
