package fanout

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	sendBufferSize = 256
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
)

// Client is one websocket subscriber. userID comes from the validated
// token at upgrade time; groups are chosen by the client.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID string
	groups map[string]struct{}
}

// NewClient wraps an upgraded connection and registers it with the hub
func NewClient(hub *Hub, conn *websocket.Conn, userID string, groups []string) *Client {
	gs := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		if g != "" {
			gs[g] = struct{}{}
		}
	}
	c := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		userID: userID,
		groups: gs,
	}
	hub.Register(c)
	return c
}

func (c *Client) inGroup(group string) bool {
	_, ok := c.groups[group]
	return ok
}

// trySend queues a message without blocking. A full buffer means the
// client is too slow; the message is dropped (at-most-once delivery).
func (c *Client) trySend(data []byte) {
	// Unregister can close send between the hub's client snapshot and
	// this send. Absorb the send-on-closed-channel panic; the client is
	// gone and the message is dropped like any other.
	defer func() {
		if recover() != nil {
			slog.Debug("fanout send raced client disconnect", "user_id", c.userID)
		}
	}()
	select {
	case c.send <- data:
	default:
		slog.Debug("fanout dropping message for slow client", "user_id", c.userID)
	}
}

// WritePump drains the send channel onto the connection. Runs as its own
// goroutine per client; exits when the hub closes the send channel or a
// write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump consumes client frames to keep the connection's read side
// alive. Subscribers only listen, so inbound payloads are discarded.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(1024)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
