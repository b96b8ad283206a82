package ws

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/vnkhanh/vocasync/middleware"
	"github.com/vnkhanh/vocasync/models"
	"github.com/vnkhanh/vocasync/services"
)

type connectedMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// HandleSyncWebSocket upgrades an authenticated request and subscribes it to
// the caller's sync notifications. Browsers cannot set headers on a websocket
// handshake, so the credential comes in the token query parameter.
func HandleSyncWebSocket(hub *Hub, resolver services.IdentityResolver, checkOrigin func(origin string) bool) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || checkOrigin == nil || checkOrigin(origin)
		},
	}

	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Missing token"})
			return
		}
		id, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			middleware.AbortIdentity(c, err)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", "err", err)
			return
		}
		if err := conn.WriteJSON(connectedMessage{Type: "connected", Message: "Subscribed to sync notifications"}); err != nil {
			conn.Close()
			return
		}
		hub.Register(id.Subject, conn)
		slog.Debug("websocket connected", "subject", id.Subject)
	}
}
