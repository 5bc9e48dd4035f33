package ws

import (
	"net/http"
	"time"

	"printmonitor/common/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
)

// ServeWS upgrades the request and streams hub broadcasts to the client
// until either side goes away. Client messages are read only to process
// control frames and detect disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrade(w, r)
	if err != nil {
		if logger.Global != nil {
			logger.Global.Warn("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		}
		return
	}
	defer conn.close()

	id := uuid.NewString()
	ch := make(chan Message, 16)
	h.Register(id, ch)
	defer h.Unregister(id)

	if logger.Global != nil {
		logger.Global.Debug("WebSocket client connected", "client", id, "remote", conn.remoteAddr())
	}

	closed := conn.watch(pongWait, func(err error) {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && logger.Global != nil {
			logger.Global.Debug("WebSocket read error", "client", id, "error", err)
		}
	})

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				_ = conn.sendClose(websocket.CloseGoingAway, "shutting down", writeTimeout)
				return
			}
			if err := conn.send(&msg, writeTimeout); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.ping(writeTimeout); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
