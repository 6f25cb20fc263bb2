package ws

import (
	"net/http"

	"github.com/vedran77/matrimony/internal/transport/http/middleware"
	"github.com/vedran77/matrimony/pkg/logger"
	"nhooyr.io/websocket"
)

// ServeWS upgrades an authenticated request to a WebSocket. Browsers cannot
// set headers on the upgrade, so the token comes from the query string.
// An empty originPatterns list disables origin checks.
func ServeWS(hub *Hub, jwtSecret string, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, `{"error":{"code":"UNAUTHORIZED","message":"missing token"}}`, http.StatusUnauthorized)
			return
		}

		userID, err := middleware.ParseToken(jwtSecret, token)
		if err != nil {
			http.Error(w, `{"error":{"code":"UNAUTHORIZED","message":"invalid token"}}`, http.StatusUnauthorized)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns:     originPatterns,
			InsecureSkipVerify: len(originPatterns) == 0,
		})
		if err != nil {
			logger.Error().Err(err).Int64("user_id", userID).Msg("ws: accept error")
			return
		}

		client := NewClient(hub, conn, userID)
		if !hub.Register(client) {
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		}

		ctx := r.Context()
		go client.WritePump(ctx)
		client.ReadPump(ctx)
	}
}
