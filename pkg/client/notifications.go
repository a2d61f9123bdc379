package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/websocket"
)

// Realtime event names.
const (
	EventNotificationNew     = "notification:new"
	EventNotificationRead    = "notification:read"
	EventNotificationReadAll = "notification:readAll"
	EventNotificationDeleted = "notification:deleted"
)

const eventQueue = 64

// Notification mirrors the server's notification record.
type Notification struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Read      bool       `json:"read"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	Link      string     `json:"link,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Event is one realtime frame.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

type idPayload struct {
	ID     string     `json:"id"`
	ReadAt *time.Time `json:"readAt,omitempty"`
}

// NotificationStore keeps the user's notifications in sync with the server.
// Realtime events are queued on a channel and applied by the single
// goroutine running Run, so every state change happens in arrival order.
// Applying an event twice has no further effect, and a deleted notification
// is never brought back by a late notification:new.
type NotificationStore struct {
	client  *Client
	events  chan Event
	running atomic.Bool

	mu       sync.RWMutex
	items    []Notification // newest first
	deleted  map[string]struct{}
	onChange func(Event)
}

// NewNotificationStore creates an empty store.
func NewNotificationStore(c *Client) *NotificationStore {
	return &NotificationStore{
		client:  c,
		events:  make(chan Event, eventQueue),
		deleted: make(map[string]struct{}),
	}
}

// OnChange registers fn to be called by the dispatcher after each applied
// event. Set it before calling Run.
func (s *NotificationStore) OnChange(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Fetch replaces the cache with the server's list.
func (s *NotificationStore) Fetch(ctx context.Context) ([]Notification, error) {
	var list []Notification
	if err := s.client.Do(ctx, http.MethodGet, "/notifications", nil, &list); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.items = slices.Clone(list)
	s.mu.Unlock()
	return list, nil
}

// Items returns a copy of the cached notifications, newest first.
func (s *NotificationStore) Items() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// Unread counts cached notifications not yet read.
func (s *NotificationStore) Unread() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, item := range s.items {
		if !item.Read {
			n++
		}
	}
	return n
}

// MarkRead marks a notification read on the server. The cache is updated
// through the dispatcher while Run is active, so events already queued are
// applied first.
func (s *NotificationStore) MarkRead(ctx context.Context, id string) error {
	if err := s.client.Do(ctx, http.MethodPut, "/notifications/"+id+"/read", nil, nil); err != nil {
		return err
	}
	now := time.Now().UTC()
	return s.local(ctx, newEvent(EventNotificationRead, idPayload{ID: id, ReadAt: &now}))
}

// MarkAllRead marks every notification read.
func (s *NotificationStore) MarkAllRead(ctx context.Context) error {
	if err := s.client.Do(ctx, http.MethodPut, "/notifications/read-all", nil, nil); err != nil {
		return err
	}
	return s.local(ctx, newEvent(EventNotificationReadAll, nil))
}

// Delete removes a notification.
func (s *NotificationStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Do(ctx, http.MethodDelete, "/notifications/"+id, nil, nil); err != nil && !IsNotFound(err) {
		return err
	}
	return s.local(ctx, newEvent(EventNotificationDeleted, idPayload{ID: id}))
}

// local applies a change made by this client in order with the queued
// realtime events.
func (s *NotificationStore) local(ctx context.Context, ev Event) error {
	if s.running.Load() {
		return s.Dispatch(ctx, ev)
	}
	return s.Apply(ev)
}

// Dispatch queues ev for the dispatcher. It blocks while the queue is full.
func (s *NotificationStore) Dispatch(ctx context.Context, ev Event) error {
	select {
	case s.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run applies queued events until ctx is done.
func (s *NotificationStore) Run(ctx context.Context) {
	s.running.Store(true)
	defer s.running.Store(false)
	for {
		select {
		case ev := <-s.events:
			if err := s.Apply(ev); err != nil {
				slog.Warn("Dropping realtime event", "event", ev.Name, "error", err)
				continue
			}
			s.mu.RLock()
			fn := s.onChange
			s.mu.RUnlock()
			if fn != nil {
				fn(ev)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Apply updates the cache for one event. Unknown events are ignored.
func (s *NotificationStore) Apply(ev Event) error {
	switch ev.Name {
	case EventNotificationNew:
		var n Notification
		if err := json.Unmarshal(ev.Data, &n); err != nil {
			return fmt.Errorf("failed to decode notification: %w", err)
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, gone := s.deleted[n.ID]; gone || s.index(n.ID) >= 0 {
			return nil
		}
		s.items = slices.Insert(s.items, 0, n)

	case EventNotificationRead:
		var p idPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return fmt.Errorf("failed to decode %s: %w", ev.Name, err)
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if i := s.index(p.ID); i >= 0 {
			markRead(&s.items[i], p.ReadAt)
		}

	case EventNotificationReadAll:
		s.mu.Lock()
		defer s.mu.Unlock()
		for i := range s.items {
			markRead(&s.items[i], nil)
		}

	case EventNotificationDeleted:
		var p idPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return fmt.Errorf("failed to decode %s: %w", ev.Name, err)
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		s.deleted[p.ID] = struct{}{}
		s.items = slices.DeleteFunc(s.items, func(n Notification) bool { return n.ID == p.ID })
	}
	return nil
}

// markRead sets the read flag and keeps the first read time.
func markRead(n *Notification, at *time.Time) {
	n.Read = true
	if n.ReadAt != nil {
		return
	}
	if at == nil {
		now := time.Now().UTC()
		at = &now
	}
	n.ReadAt = at
}

func (s *NotificationStore) index(id string) int {
	return slices.IndexFunc(s.items, func(n Notification) bool { return n.ID == id })
}

// Listen connects to the realtime endpoint and queues every frame for the
// dispatcher. It returns when ctx is done or the connection drops.
func (s *NotificationStore) Listen(ctx context.Context) error {
	token := s.client.Token()
	if token == "" {
		return ErrNotAuthenticated
	}
	wsURL, err := socketURL(s.client.BaseURL(), token)
	if err != nil {
		return err
	}
	cfg, err := websocket.NewConfig(wsURL, s.client.BaseURL())
	if err != nil {
		return fmt.Errorf("failed to configure websocket: %w", err)
	}
	ws, err := cfg.DialContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", cfg.Location.Redacted(), err)
	}

	stop := context.AfterFunc(ctx, func() { ws.Close() })
	defer stop()
	defer ws.Close()

	for {
		var ev Event
		if err := websocket.JSON.Receive(ws, &ev); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("realtime connection closed: %w", err)
		}
		if err := s.Dispatch(ctx, ev); err != nil {
			return err
		}
	}
}

// socketURL turns http(s)://host into ws(s)://host/ws?token=...
func socketURL(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", errors.New("base URL must use http or https")
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String(), nil
}

func newEvent(name string, data any) Event {
	raw, _ := json.Marshal(data)
	return Event{Name: name, Data: raw}
}
