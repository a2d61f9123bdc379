package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mmynk/finwise/internal/models"
	"github.com/mmynk/finwise/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "finwise-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestUsers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := models.NewUser("asha@example.com", "Asha", "hash")
	user.Currency = "INR"
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	t.Run("duplicate email", func(t *testing.T) {
		dup := models.NewUser("asha@example.com", "Other", "hash")
		err := store.CreateUser(ctx, dup)
		if !errors.Is(err, storage.ErrDuplicate) {
			t.Errorf("expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("get by email and id", func(t *testing.T) {
		byEmail, err := store.GetUserByEmail(ctx, "asha@example.com")
		if err != nil {
			t.Fatalf("GetUserByEmail failed: %v", err)
		}
		if byEmail.ID != user.ID || byEmail.Role != models.RoleIndividual || byEmail.Currency != "INR" {
			t.Errorf("unexpected user: %+v", byEmail)
		}

		byID, err := store.GetUserByID(ctx, user.ID)
		if err != nil {
			t.Fatalf("GetUserByID failed: %v", err)
		}
		if byID.Email != user.Email {
			t.Errorf("email mismatch: got %s, want %s", byID.Email, user.Email)
		}
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := store.GetUserByEmail(ctx, "nobody@example.com")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("update role", func(t *testing.T) {
		user.Role = models.RoleStudent
		if err := store.UpdateUser(ctx, user); err != nil {
			t.Fatalf("UpdateUser failed: %v", err)
		}
		got, _ := store.GetUserByID(ctx, user.ID)
		if got.Role != models.RoleStudent {
			t.Errorf("role = %s, want student", got.Role)
		}
	})
}

func TestCollection(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	txs := store.Transactions()

	base := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	seed := []*models.Transaction{
		{Base: models.Base{UserID: "u1"}, AccountID: "a1", Type: models.Expense, Amount: 1500, Category: "Food", Date: base},
		{Base: models.Base{UserID: "u1"}, AccountID: "a1", Type: models.Income, Amount: 50000, Category: "Salary", Date: base.AddDate(0, 0, -20)},
		{Base: models.Base{UserID: "u1"}, AccountID: "a2", Type: models.Expense, Amount: 300, Category: "Travel", Date: base.AddDate(0, 0, 2)},
		{Base: models.Base{UserID: "u2"}, AccountID: "a9", Type: models.Expense, Amount: 999, Category: "Food", Date: base},
	}
	for _, tx := range seed {
		if err := txs.Insert(ctx, tx); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		if tx.ID == "" || tx.CreatedAt.IsZero() {
			t.Fatalf("Insert did not stamp document: %+v", tx.Base)
		}
	}

	t.Run("Get is scoped by owner", func(t *testing.T) {
		got, err := txs.Get(ctx, "u1", seed[0].ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Amount != 1500 || got.Category != "Food" {
			t.Errorf("unexpected transaction: %+v", got)
		}
		if _, err := txs.Get(ctx, "u2", seed[0].ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound for other owner, got %v", err)
		}
	})

	t.Run("List filters by field", func(t *testing.T) {
		got, err := txs.List(ctx, "u1", storage.Query{}.Eq("type", models.Expense))
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("expected 2 expenses, got %d", len(got))
		}
	})

	t.Run("List filters by date range and sorts", func(t *testing.T) {
		from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
		got, err := txs.List(ctx, "u1", storage.Query{}.Between("date", from, to).OrderBy("date", true))
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 transactions in May, got %d", len(got))
		}
		if got[0].Category != "Travel" {
			t.Errorf("expected latest first, got %s", got[0].Category)
		}
	})

	t.Run("List honours limit", func(t *testing.T) {
		got, err := txs.List(ctx, "u1", storage.Query{Limit: 1})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(got) != 1 {
			t.Errorf("expected 1 transaction, got %d", len(got))
		}
	})

	t.Run("Update replaces document", func(t *testing.T) {
		tx := seed[0]
		tx.Amount = 1750
		if err := txs.Update(ctx, tx); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		got, _ := txs.Get(ctx, "u1", tx.ID)
		if got.Amount != 1750 {
			t.Errorf("amount = %v, want 1750", got.Amount)
		}

		stranger := *seed[3]
		stranger.UserID = "u1"
		if err := txs.Update(ctx, &stranger); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound updating another owner's document, got %v", err)
		}
	})

	t.Run("DeleteWhere removes matching documents", func(t *testing.T) {
		n, err := txs.DeleteWhere(ctx, "u1", storage.Query{}.Eq("accountId", "a1"))
		if err != nil {
			t.Fatalf("DeleteWhere failed: %v", err)
		}
		if n != 2 {
			t.Errorf("deleted %d, want 2", n)
		}
		left, _ := txs.List(ctx, "u1", storage.Query{})
		if len(left) != 1 {
			t.Errorf("expected 1 remaining transaction, got %d", len(left))
		}
	})

	t.Run("Scan crosses owners", func(t *testing.T) {
		all, err := txs.Scan(ctx, storage.Query{}.Eq("category", "Food"))
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		if len(all) != 1 || all[0].UserID != "u2" {
			t.Errorf("unexpected scan result: %d documents", len(all))
		}
	})

	t.Run("Delete missing document", func(t *testing.T) {
		if err := txs.Delete(ctx, "u1", "nonexistent-id"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestBooleanFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, read := range []bool{true, false, false} {
		n := &models.Notification{
			Base:  models.Base{UserID: "u1"},
			Type:  models.NotifySystem,
			Title: "note",
			Read:  read,
		}
		n.CreatedAt = time.Now().Add(time.Duration(i) * time.Second)
		if err := store.Notifications().Insert(ctx, n); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	unread, err := store.Notifications().List(ctx, "u1", storage.Query{}.Eq("read", false))
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(unread) != 2 {
		t.Errorf("expected 2 unread notifications, got %d", len(unread))
	}
}

func TestBuildWhereRejectsUnsafeFields(t *testing.T) {
	_, _, err := buildWhere(nil, storage.Query{}.Eq("x') OR 1=1 --", 1))
	if err == nil {
		t.Error("expected error for unsafe field name")
	}
}
