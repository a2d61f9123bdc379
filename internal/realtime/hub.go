// Package realtime pushes notification events to connected clients over
// WebSockets.
//
// Delivery is best effort: events are dropped when the hub is saturated and
// a connection that cannot keep up is closed instead of blocking publishers.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Event names sent to clients.
const (
	EventNotificationNew     = "notification:new"
	EventNotificationRead    = "notification:read"
	EventNotificationReadAll = "notification:readAll"
	EventNotificationDeleted = "notification:deleted"
)

const (
	eventBuffer  = 256
	clientBuffer = 32
)

// Frame is the wire format of every message sent to a client.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Publisher delivers events to a user's open connections.
type Publisher interface {
	Publish(userID, event string, data any)
}

// Observer is told about connection and event activity, e.g. for metrics.
type Observer interface {
	ConnectionOpened()
	ConnectionClosed()
	EventPublished(event string)
}

type nopObserver struct{}

func (nopObserver) ConnectionOpened()     {}
func (nopObserver) ConnectionClosed()     {}
func (nopObserver) EventPublished(string) {}

type envelope struct {
	userID string
	event  string
	frame  []byte
}

type client struct {
	userID string
	send   chan []byte
}

// Hub fans events out to connections. All connection bookkeeping happens on
// the goroutine running Run, so the client map needs no lock.
type Hub struct {
	events     chan envelope
	register   chan *client
	unregister chan *client
	done       chan struct{}

	clients  map[string]map[*client]struct{}
	observer Observer
}

// NewHub creates a hub. observer may be nil.
func NewHub(observer Observer) *Hub {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Hub{
		events:     make(chan envelope, eventBuffer),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		clients:    make(map[string]map[*client]struct{}),
		observer:   observer,
	}
}

// Publish queues an event for userID without blocking. The payload is
// encoded once here so the dispatcher only copies bytes.
func (h *Hub) Publish(userID, event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		slog.Error("failed to encode realtime event", "event", event, "error", err)
		return
	}
	frame, err := json.Marshal(Frame{Event: event, Data: payload})
	if err != nil {
		slog.Error("failed to encode realtime frame", "event", event, "error", err)
		return
	}

	select {
	case h.events <- envelope{userID: userID, event: event, frame: frame}:
	case <-h.done:
	default:
		slog.Warn("realtime event dropped, hub saturated", "event", event, "user_id", userID)
	}
}

// Run dispatches events until ctx is cancelled, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, conns := range h.clients {
				for c := range conns {
					h.remove(c)
				}
			}
			return

		case c := <-h.register:
			if h.clients[c.userID] == nil {
				h.clients[c.userID] = make(map[*client]struct{})
			}
			h.clients[c.userID][c] = struct{}{}
			h.observer.ConnectionOpened()
			slog.Debug("realtime client connected", "user_id", c.userID)

		case c := <-h.unregister:
			h.remove(c)

		case e := <-h.events:
			h.observer.EventPublished(e.event)
			for c := range h.clients[e.userID] {
				select {
				case c.send <- e.frame:
				default:
					slog.Warn("dropping slow realtime client", "user_id", c.userID)
					h.remove(c)
				}
			}
		}
	}
}

// remove forgets c and closes its send channel. Safe to call twice.
func (h *Hub) remove(c *client) {
	conns, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := conns[c]; !ok {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.clients, c.userID)
	}
	close(c.send)
	h.observer.ConnectionClosed()
	slog.Debug("realtime client disconnected", "user_id", c.userID)
}

// attach registers a new client for userID. It returns false when the hub
// has stopped.
func (h *Hub) attach(userID string) (*client, bool) {
	c := &client{userID: userID, send: make(chan []byte, clientBuffer)}
	select {
	case h.register <- c:
		return c, true
	case <-h.done:
		return nil, false
	}
}

func (h *Hub) detach(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
