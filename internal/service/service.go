// Package service implements the finance operations on top of storage.
//
// Services are transport agnostic: every method takes the authenticated
// user's ID and returns domain values and errors (storage.ErrNotFound,
// *models.ValidationError, auth errors). The api package maps those onto
// HTTP responses.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/mmynk/finwise/internal/models"
	"github.com/mmynk/finwise/internal/realtime"
	"github.com/mmynk/finwise/internal/storage"
)

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

// Services bundles every domain service over one store.
type Services struct {
	Users         *UserService
	Accounts      *AccountService
	Transactions  *TransactionService
	Budgets       *BudgetService
	Goals         *GoalService
	Bills         *BillService
	Investments   *InvestmentService
	Notifications *NotificationService
	Dashboard     *DashboardService
	Reminders     *ReminderService
}

// New wires the services together. publisher may be nil, in which case
// realtime events are discarded.
func New(store storage.Store, publisher realtime.Publisher, clock Clock) *Services {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	if publisher == nil {
		publisher = discard{}
	}
	locks := &userLocks{locks: make(map[string]*sync.Mutex)}

	notifications := &NotificationService{store: store, publisher: publisher, now: clock}
	accounts := &AccountService{store: store, crud: newCRUD(store.Accounts(), clock), locks: locks}
	budgets := &BudgetService{store: store, crud: newCRUD(store.Budgets(), clock), notifications: notifications, locks: locks, now: clock}
	transactions := &TransactionService{crud: newCRUD(store.Transactions(), clock), accounts: accounts, budgets: budgets, locks: locks}
	bills := &BillService{crud: newCRUD(store.Bills(), clock), transactions: transactions, locks: locks, now: clock}

	return &Services{
		Users:         &UserService{store: store, now: clock},
		Accounts:      accounts,
		Transactions:  transactions,
		Budgets:       budgets,
		Goals:         &GoalService{crud: newCRUD(store.Goals(), clock), notifications: notifications, locks: locks, now: clock},
		Bills:         bills,
		Investments:   &InvestmentService{crud: newCRUD(store.Investments(), clock)},
		Notifications: notifications,
		Dashboard:     &DashboardService{store: store, now: clock},
		Reminders:     &ReminderService{store: store, bills: bills, notifications: notifications, now: clock},
	}
}

type discard struct{}

func (discard) Publish(string, string, any) {}

// userLocks serializes read-modify-write updates per user.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *userLocks) lock(userID string) func() {
	l.mu.Lock()
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

func invalid(field, message string) error {
	return &models.ValidationError{Field: field, Message: message}
}

// crud implements the owner-scoped operations shared by every resource.
type crud[T models.Document] struct {
	coll storage.Collection[T]
	now  Clock
}

func newCRUD[T models.Document](coll storage.Collection[T], now Clock) crud[T] {
	return crud[T]{coll: coll, now: now}
}

func (c crud[T]) create(ctx context.Context, userID string, doc T) error {
	meta := doc.Meta()
	meta.ID = ""
	meta.UserID = userID
	meta.CreatedAt = time.Time{}
	if err := doc.Validate(); err != nil {
		return err
	}
	storage.Stamp(doc, c.now())
	return c.coll.Insert(ctx, doc)
}

func (c crud[T]) get(ctx context.Context, userID, id string) (T, error) {
	return c.coll.Get(ctx, userID, id)
}

func (c crud[T]) list(ctx context.Context, userID string, q storage.Query) ([]T, error) {
	return c.coll.List(ctx, userID, q)
}

// update loads the document, lets apply modify it, restores the fields a
// caller may not change, validates and stores it.
func (c crud[T]) update(ctx context.Context, userID, id string, apply func(T) error) (T, error) {
	doc, err := c.coll.Get(ctx, userID, id)
	if err != nil {
		return doc, err
	}
	meta := *doc.Meta()

	if err := apply(doc); err != nil {
		return doc, err
	}
	if err := c.save(ctx, doc, meta); err != nil {
		return doc, err
	}
	return doc, nil
}

// save stores doc keeping the identity and creation time from meta.
func (c crud[T]) save(ctx context.Context, doc T, meta models.Base) error {
	m := doc.Meta()
	m.ID = meta.ID
	m.UserID = meta.UserID
	m.CreatedAt = meta.CreatedAt
	m.UpdatedAt = c.now()
	if err := doc.Validate(); err != nil {
		return err
	}
	return c.coll.Update(ctx, doc)
}

func (c crud[T]) delete(ctx context.Context, userID, id string) error {
	return c.coll.Delete(ctx, userID, id)
}
