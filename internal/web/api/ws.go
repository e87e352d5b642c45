package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/Dominicksam/SmartLiving/internal/fanout"
	"github.com/Dominicksam/SmartLiving/internal/web/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin policy is enforced at the reverse proxy
		return true
	},
}

func RegisterWSRoutes(r *gin.Engine, mw *middleware.MiddlewareManager, hub *fanout.Hub) {
	r.GET("/ws", mw.RequireAuth(), func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", "error", err)
			return
		}
		var groups []string
		if raw := c.Query("groups"); raw != "" {
			groups = strings.Split(raw, ",")
		}
		client := fanout.NewClient(hub, conn, c.GetString("user_id"), groups)
		go client.WritePump()
		go client.ReadPump()
	})
}
