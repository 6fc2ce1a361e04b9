package websocket

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs binds a fresh session to the connection and answers its frames.
func ServeWs(hub *Hub, c *websocket.Conn, handle QueryHandler) {
	client := &Client{Hub: hub, Conn: c, SessionID: "ws:" + uuid.NewString(), Send: make(chan []byte, 16)}
	client.Hub.register <- client

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go client.writePump()
	client.readPump(ctx, handle) // Run readPump in current goroutine (handler)
}
