package dashboard

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/wx-endec/eas-listener/internal/eas"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard is served same-origin from the SPA build; same-origin
	// browsers omit Origin or send a matching one. No cross-site embedding
	// use case exists for this operator surface.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsAlerts handles GET /ws/alerts: it upgrades to a WebSocket and pushes
// the active-alert-set snapshot once immediately, then again every time
// the monitoring hub observes a mutation, until the client disconnects.
func (h *handlers) wsAlerts(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("dashboard: websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	id, ch := h.hub.SubscribeAlerts()
	defer h.hub.UnsubscribeAlerts(id)

	if err := writeAlerts(conn, h.mgr.ActiveAlerts()); err != nil {
		return
	}

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	// Detect client-initiated close without blocking the write loop on it.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case snapshot, ok := <-ch:
			if !ok {
				return
			}
			if err := writeAlerts(conn, snapshot); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

func writeAlerts(conn *websocket.Conn, snapshot []eas.Alert) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(gin.H{"status": "ok", "count": len(snapshot), "alerts": snapshot})
}
