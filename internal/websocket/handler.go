package websocket

import (
	"net/http"

	ws "github.com/coder/websocket"
)

// ServeHTTP upgrades the request to a WebSocket connection and runs it as a
// hub client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{
		InsecureSkipVerify: true, // SPA dev server runs on a different origin
	})
	if err != nil {
		h.logger.Warn("websocket accept", "error", err)
		return
	}

	NewClient(h, conn).Run(r.Context())
}
