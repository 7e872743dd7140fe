package observer

import (
	"time"

	"github.com/gorilla/websocket"
)

// connection wraps one client's websocket with the buffered-send pattern
// needed to keep a single slow reader from blocking every broadcast.
type connection struct {
	ws   *websocket.Conn
	send chan []byte
}

// writePump drains send onto the socket, with periodic pings to detect a
// dead peer. Exits (and closes the socket) when send is closed.
func (c *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards any inbound client traffic (the feed is one-way) but
// still must read to process control frames and detect disconnects.
func (c *connection) readPump(h *Hub) {
	defer func() {
		h.unregister(c)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}
