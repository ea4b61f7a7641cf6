package httpapi

import (
	"context"
	"net/http"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/gorilla/websocket"
)

const (
	defaultStreamBuffer = 32
	writeWait           = 10 * time.Second
	pingPeriod          = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The front-end is served from the same origin or a dev server.
	CheckOrigin: func(*http.Request) bool { return true },
}

// stream pushes every published change event to the client as JSON. A
// client that cannot keep up loses events rather than stalling publishers.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer func() { _ = conn.Close() }()

	size := h.StreamBuffer
	if size <= 0 {
		size = defaultStreamBuffer
	}
	queue := make(chan cloudevents.Event, size)
	unsubscribe := h.Events.Subscribe(func(_ context.Context, event cloudevents.Event) {
		select {
		case queue <- event:
		default:
			h.Logger.Warn().Str("type", event.Type()).Str("id", event.ID()).Msg("event stream client is slow, dropping event")
		}
	})
	defer unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	h.Logger.Debug().Str("remote", r.RemoteAddr).Msg("event stream opened")
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.Logger.Debug().Str("remote", r.RemoteAddr).Msg("event stream closed")
			return
		case event := <-queue:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				h.Logger.Debug().Err(err).Msg("event stream write failed")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
