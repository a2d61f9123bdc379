package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/mmynk/finwise/internal/api"
	"github.com/mmynk/finwise/internal/auth"
	"github.com/mmynk/finwise/internal/export"
	"github.com/mmynk/finwise/internal/realtime"
	"github.com/mmynk/finwise/internal/service"
	"github.com/mmynk/finwise/internal/storage/sqlite"
)

type account struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Balance float64 `json:"balance"`
}

func accountID(a account) string { return a.ID }

// setupServer runs the full API with a realtime hub over a temp database.
func setupServer(t *testing.T) (*httptest.Server, *realtime.Hub) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "client-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	store, err := sqlite.New(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to create store: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	hub := realtime.NewHub(nil)
	go hub.Run(ctx)

	jwt := auth.NewJWTManager("client-test-secret", time.Hour, 24*time.Hour)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := api.New(api.Config{
		Services: service.New(store, hub, nil),
		Auth:     service.NewAuthService(auth.NewPasswordAuthenticator(store, "USD"), jwt, store, logger),
		JWT:      jwt,
		Exporter: export.New(store, nil),
		Realtime: hub.Handler(),
	})
	server := httptest.NewServer(srv)

	t.Cleanup(func() {
		server.Close()
		cancel()
		store.Close()
		os.Remove(tmpFile.Name())
	})
	return server, hub
}

func newClient(t *testing.T, server *httptest.Server, email string) *Client {
	t.Helper()
	c := New(server.URL, server.Client())
	if _, err := c.Register(context.Background(), email, "Test User", "password123"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return c
}

func TestClientAuth(t *testing.T) {
	server, _ := setupServer(t)
	ctx := context.Background()

	c := New(server.URL+"/", server.Client())
	if _, err := c.Me(ctx); err == nil {
		t.Fatal("Me without token should fail")
	}
	if _, err := c.Refresh(ctx); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Refresh before login: err = %v, want ErrNotAuthenticated", err)
	}

	s, err := c.Register(ctx, "Ana@Example.com", "Ana", "password123")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if s.User.Email != "ana@example.com" || c.Token() == "" {
		t.Errorf("session = %+v", s)
	}

	_, err = New(server.URL, server.Client()).Login(ctx, "ana@example.com", "wrong-password")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Errorf("Login with wrong password: err = %v, want 401", err)
	}

	if _, err := c.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	me, err := c.Me(ctx)
	if err != nil {
		t.Fatalf("Me failed: %v", err)
	}
	if me.Name != "Ana" {
		t.Errorf("name = %q, want Ana", me.Name)
	}
}

func TestStore(t *testing.T) {
	server, _ := setupServer(t)
	ctx := context.Background()
	c := newClient(t, server, "ana@example.com")

	accounts := NewStore(c, "/accounts", accountID)

	checking, err := accounts.Create(ctx, map[string]any{"name": "Checking", "type": "checking", "balance": 100})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := accounts.Create(ctx, map[string]any{"name": "Savings", "type": "savings", "balance": 500}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if got := len(accounts.Items()); got != 2 {
		t.Fatalf("cached items = %d, want 2", got)
	}

	t.Run("update overwrites cache", func(t *testing.T) {
		if _, err := accounts.Update(ctx, checking.ID, map[string]any{"name": "Main"}); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		cached, ok := accounts.Cached(checking.ID)
		if !ok || cached.Name != "Main" {
			t.Errorf("cached = %+v, %v", cached, ok)
		}
	})

	t.Run("fetch replaces cache", func(t *testing.T) {
		list, err := accounts.Fetch(ctx)
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if len(list) != 2 || len(accounts.Items()) != 2 {
			t.Errorf("fetched %d, cached %d", len(list), len(accounts.Items()))
		}
	})

	t.Run("delete evicts", func(t *testing.T) {
		if err := accounts.Delete(ctx, checking.ID); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, ok := accounts.Cached(checking.ID); ok {
			t.Error("deleted account still cached")
		}
		if _, err := accounts.Get(ctx, checking.ID); !IsNotFound(err) {
			t.Errorf("Get after delete: err = %v, want not found", err)
		}
		if err := accounts.Delete(ctx, checking.ID); err != nil {
			t.Errorf("second Delete: %v", err)
		}
	})

	t.Run("stores are per user", func(t *testing.T) {
		other := NewStore(newClient(t, server, "li@example.com"), "/accounts", accountID)
		list, err := other.Fetch(ctx)
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if len(list) != 0 {
			t.Errorf("other user sees %d accounts", len(list))
		}
	})
}

func TestStoreConcurrentWrites(t *testing.T) {
	server, _ := setupServer(t)
	ctx := context.Background()
	accounts := NewStore(newClient(t, server, "ana@example.com"), "/accounts", accountID)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := accounts.Create(ctx, map[string]any{"name": "Cash", "type": "cash"}); err != nil {
				t.Errorf("Create failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := len(accounts.Items()); got != 8 {
		t.Errorf("cached items = %d, want 8", got)
	}
}

func frame(t *testing.T, name string, data any) Event {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return Event{Name: name, Data: raw}
}

func TestNotificationApply(t *testing.T) {
	s := NewNotificationStore(New("http://unused", nil))
	n1 := Notification{ID: "n1", Title: "first"}
	n2 := Notification{ID: "n2", Title: "second"}

	steps := []struct {
		name       string
		event      Event
		wantIDs    []string
		wantUnread int
	}{
		{"new", frame(t, EventNotificationNew, n1), []string{"n1"}, 1},
		{"newer goes first", frame(t, EventNotificationNew, n2), []string{"n2", "n1"}, 2},
		{"duplicate new is ignored", frame(t, EventNotificationNew, n1), []string{"n2", "n1"}, 2},
		{"read", frame(t, EventNotificationRead, map[string]string{"id": "n1"}), []string{"n2", "n1"}, 1},
		{"read twice", frame(t, EventNotificationRead, map[string]string{"id": "n1"}), []string{"n2", "n1"}, 1},
		{"read unknown", frame(t, EventNotificationRead, map[string]string{"id": "zz"}), []string{"n2", "n1"}, 1},
		{"read all", frame(t, EventNotificationReadAll, map[string]int{"count": 1}), []string{"n2", "n1"}, 0},
		{"delete", frame(t, EventNotificationDeleted, map[string]string{"id": "n2"}), []string{"n1"}, 0},
		{"delete twice", frame(t, EventNotificationDeleted, map[string]string{"id": "n2"}), []string{"n1"}, 0},
		{"new after delete", frame(t, EventNotificationNew, n2), []string{"n1"}, 0},
		{"unknown event", frame(t, "budget:changed", nil), []string{"n1"}, 0},
	}
	for _, step := range steps {
		if err := s.Apply(step.event); err != nil {
			t.Fatalf("%s: Apply failed: %v", step.name, err)
		}
		var ids []string
		for _, n := range s.Items() {
			ids = append(ids, n.ID)
		}
		if len(ids) != len(step.wantIDs) {
			t.Fatalf("%s: ids = %v, want %v", step.name, ids, step.wantIDs)
		}
		for i := range ids {
			if ids[i] != step.wantIDs[i] {
				t.Fatalf("%s: ids = %v, want %v", step.name, ids, step.wantIDs)
			}
		}
		if got := s.Unread(); got != step.wantUnread {
			t.Errorf("%s: unread = %d, want %d", step.name, got, step.wantUnread)
		}
	}

	if err := s.Apply(Event{Name: EventNotificationNew, Data: json.RawMessage(`"oops"`)}); err == nil {
		t.Error("malformed notification should fail")
	}
	if items := s.Items(); items[0].ReadAt == nil {
		t.Errorf("read notification has no ReadAt: %+v", items[0])
	}
}

// okServer accepts every request with an empty success envelope.
func okServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"success":true}`)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNotificationLocalWrites(t *testing.T) {
	server := okServer(t)
	ctx := context.Background()

	t.Run("read sets ReadAt", func(t *testing.T) {
		s := NewNotificationStore(New(server.URL, server.Client()))
		if err := s.Apply(frame(t, EventNotificationNew, Notification{ID: "n1"})); err != nil {
			t.Fatal(err)
		}
		if err := s.MarkRead(ctx, "n1"); err != nil {
			t.Fatalf("MarkRead failed: %v", err)
		}
		items := s.Items()
		if !items[0].Read || items[0].ReadAt == nil {
			t.Errorf("after MarkRead: %+v", items[0])
		}
	})

	t.Run("queued new does not revive a deleted notification", func(t *testing.T) {
		s := NewNotificationStore(New(server.URL, server.Client()))
		if err := s.Dispatch(ctx, frame(t, EventNotificationNew, Notification{ID: "n1"})); err != nil {
			t.Fatal(err)
		}
		if err := s.Delete(ctx, "n1"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}

		applied := make(chan Event, 4)
		s.OnChange(func(ev Event) { applied <- ev })
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go s.Run(runCtx)

		select {
		case <-applied:
		case <-time.After(5 * time.Second):
			t.Fatal("queued event not applied")
		}
		if items := s.Items(); len(items) != 0 {
			t.Errorf("items = %+v, want none", items)
		}
	})

	t.Run("local writes follow queued events", func(t *testing.T) {
		s := NewNotificationStore(New(server.URL, server.Client()))
		applied := make(chan Event, 8)
		s.OnChange(func(ev Event) { applied <- ev })
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go s.Run(runCtx)

		wait := func() Event {
			t.Helper()
			select {
			case ev := <-applied:
				return ev
			case <-time.After(5 * time.Second):
				t.Fatal("event not applied")
				return Event{}
			}
		}

		// Once the first event is applied the dispatcher is running.
		if err := s.Dispatch(ctx, frame(t, EventNotificationNew, Notification{ID: "n0"})); err != nil {
			t.Fatal(err)
		}
		wait()

		if err := s.Dispatch(ctx, frame(t, EventNotificationNew, Notification{ID: "n1"})); err != nil {
			t.Fatal(err)
		}
		if err := s.Delete(ctx, "n1"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if err := s.MarkAllRead(ctx); err != nil {
			t.Fatalf("MarkAllRead failed: %v", err)
		}

		var names []string
		for range 3 {
			names = append(names, wait().Name)
		}
		want := []string{EventNotificationNew, EventNotificationDeleted, EventNotificationReadAll}
		if !slices.Equal(names, want) {
			t.Errorf("applied %v, want %v", names, want)
		}
		items := s.Items()
		if len(items) != 1 || items[0].ID != "n0" || !items[0].Read {
			t.Errorf("items = %+v", items)
		}
	})
}

func TestSocketURL(t *testing.T) {
	tests := []struct {
		base    string
		want    string
		wantErr bool
	}{
		{base: "http://localhost:8080", want: "ws://localhost:8080/ws?token=abc"},
		{base: "https://api.example.com/v1/", want: "wss://api.example.com/v1/ws?token=abc"},
		{base: "ftp://example.com", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			got, err := socketURL(tt.base, "abc")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("socketURL = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestNotificationListen connects the store to the server socket and
// follows notifications created and read through the API.
func TestNotificationListen(t *testing.T) {
	server, hub := setupServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := New(server.URL, server.Client())
	session, err := c.Register(ctx, "ana@example.com", "Ana", "password123")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	store := NewNotificationStore(c)
	applied := make(chan Event, 16)
	store.OnChange(func(ev Event) { applied <- ev })
	go store.Run(ctx)

	listenErr := make(chan error, 1)
	go func() { listenErr <- store.Listen(ctx) }()

	// The server registers the socket after the handshake; ping until a
	// frame makes it through.
	ping := Notification{ID: "ping", Title: "ping"}
	connected := false
	for range 100 {
		hub.Publish(session.User.ID, EventNotificationNew, ping)
		select {
		case <-applied:
			connected = true
		case <-time.After(50 * time.Millisecond):
		}
		if connected {
			break
		}
	}
	if !connected {
		t.Fatal("realtime connection not established")
	}
	if err := store.Apply(frame(t, EventNotificationDeleted, map[string]string{"id": ping.ID})); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	next := func(want string) Event {
		t.Helper()
		for {
			select {
			case ev := <-applied:
				if ev.Name == EventNotificationNew && len(ev.Data) > 0 && json.Valid(ev.Data) {
					var n Notification
					_ = json.Unmarshal(ev.Data, &n)
					if n.ID == ping.ID {
						// A late ping; drop it again.
						_ = store.Apply(frame(t, EventNotificationDeleted, map[string]string{"id": ping.ID}))
						continue
					}
				}
				if ev.Name != want {
					t.Fatalf("event = %q, want %q", ev.Name, want)
				}
				return ev
			case <-time.After(5 * time.Second):
				t.Fatalf("no %s event received", want)
			}
		}
	}

	var acct account
	if err := c.Do(ctx, http.MethodPost, "/accounts", map[string]any{"name": "Checking", "type": "checking", "balance": 100}, &acct); err != nil {
		t.Fatalf("create account: %v", err)
	}
	if err := c.Do(ctx, http.MethodPost, "/budgets", map[string]any{"name": "Food", "category": "Food", "amount": 10}, nil); err != nil {
		t.Fatalf("create budget: %v", err)
	}
	if err := c.Do(ctx, http.MethodPost, "/transactions", map[string]any{
		"accountId": acct.ID, "type": "expense", "amount": 20, "category": "Food",
	}, nil); err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	next(EventNotificationNew)
	items := store.Items()
	if len(items) != 1 || items[0].Type != "budget_alert" || store.Unread() != 1 {
		t.Fatalf("items = %+v", items)
	}

	if err := c.Do(ctx, http.MethodPut, "/notifications/read-all", nil, nil); err != nil {
		t.Fatalf("read-all: %v", err)
	}
	next(EventNotificationReadAll)
	if store.Unread() != 0 {
		t.Errorf("unread = %d, want 0", store.Unread())
	}

	if err := c.Do(ctx, http.MethodDelete, "/notifications/"+items[0].ID, nil, nil); err != nil {
		t.Fatalf("delete: %v", err)
	}
	next(EventNotificationDeleted)
	if len(store.Items()) != 0 {
		t.Errorf("items after delete = %+v", store.Items())
	}

	cancel()
	select {
	case err := <-listenErr:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Listen returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Listen did not return after cancel")
	}
}
