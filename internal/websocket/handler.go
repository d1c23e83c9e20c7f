package websocket

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/neboloop/promptpulse/internal/logging"
	"github.com/neboloop/promptpulse/internal/middleware"
	"github.com/neboloop/promptpulse/internal/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     localOrigin,
}

// localOrigin accepts clients without an Origin header (CLI tools) and
// pages served from a loopback host.
func localOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || middleware.IsLocalhostOrigin(origin)
}

// Handler returns an HTTP handler function for WebSocket upgrades.
// Authentication is enforced by the router's middleware.
func Handler(hub *realtime.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := r.URL.Query().Get("clientId")
		if clientID == "" {
			clientID = "client-" + uuid.New().String()[:8]
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.Errorf("WebSocket upgrade error: %v", err)
			return
		}

		logging.Debug("serving websocket", "client", clientID)
		realtime.ServeWS(hub, conn, clientID)
	}
}
