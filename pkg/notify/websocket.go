package notify

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/santerelay/platform/pkg/common/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSHandler bridges the broadcaster to WebSocket clients: subscribe on open,
// unsubscribe on close, JSON events on the wire.
type WSHandler struct {
	broadcaster  *Broadcaster
	writeTimeout time.Duration
	pingInterval time.Duration
}

func NewWSHandler(broadcaster *Broadcaster, writeTimeout, pingInterval time.Duration) *WSHandler {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &WSHandler{
		broadcaster:  broadcaster,
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
	}
}

func (h *WSHandler) Register(r *mux.Router) {
	r.HandleFunc("/ws/alerts", h.handleAlerts)
}

func (h *WSHandler) handleAlerts(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	sub := h.broadcaster.Subscribe()
	defer func() {
		h.broadcaster.Unsubscribe(sub)
		conn.Close()
	}()

	// Reader exists only to notice the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				// Dropped by the broadcaster (stalled queue).
				conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "subscriber dropped"))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := conn.WriteJSON(event); err != nil {
				logger.Log.WithError(err).Debug("WebSocket write failed")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
