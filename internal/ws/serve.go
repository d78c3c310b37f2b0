package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"lms-consulting-portal/backend/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The site fronts this behind its own origin checks
		return true
	},
}

// ServeWs upgrades an HTTP request to a websocket connection and starts
// its pumps
func ServeWs(hub *Hub, relay *Relay, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Error("Websocket upgrade failed", "error", err)
			return
		}

		client := NewClient(hub, relay, conn, log)
		hub.register <- client

		go client.WritePump()
		go client.ReadPump()
	}
}
