package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs attaches one upgraded connection to the trace stream for a
// correlation id. Blocks until the peer disconnects.
func ServeWs(hub *Hub, c *websocket.Conn, correlationId string) {
	client := &Client{Hub: hub, Conn: c, CorrelationId: correlationId, Send: make(chan []byte, 256)}
	client.Hub.register <- client

	go client.writePump()
	client.readPump()
}
