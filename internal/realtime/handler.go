package realtime

import (
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/net/websocket"

	"github.com/mmynk/finwise/internal/middleware"
)

// Handler upgrades authenticated requests to a WebSocket bound to the
// caller's user. It must sit behind middleware.Authenticate.
func (h *Hub) Handler() http.Handler {
	server := websocket.Server{Handler: h.serve}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if middleware.GetUserID(r.Context()) == "" {
			http.Error(w, "unauthenticated", http.StatusUnauthorized)
			return
		}
		server.ServeHTTP(w, r)
	})
}

func (h *Hub) serve(ws *websocket.Conn) {
	defer ws.Close()

	userID := middleware.GetUserID(ws.Request().Context())
	c, ok := h.attach(userID)
	if !ok {
		return
	}

	go func() {
		// Ends when the hub closes c.send; closing ws unblocks the reader below.
		defer ws.Close()
		for frame := range c.send {
			if err := websocket.Message.Send(ws, string(frame)); err != nil {
				slog.Debug("realtime write failed", "user_id", userID, "error", err)
				return
			}
		}
	}()

	// Clients do not send anything meaningful; reading detects disconnects.
	for {
		var msg string
		if err := websocket.Message.Receive(ws, &msg); err != nil {
			if err != io.EOF {
				slog.Debug("realtime read ended", "user_id", userID, "error", err)
			}
			break
		}
	}
	h.detach(c)
}
