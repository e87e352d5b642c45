package fanout

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Hub fans named events out to connected dashboard clients. Delivery is
// at-most-once and best-effort: a client with a full send buffer or no
// connection simply misses the message; there is no replay.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// envelope is the wire frame sent to subscribers
type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
	TS    string `json:"ts"`
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

// Register adds a client to the hub
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	slog.Debug("fanout client connected", "user_id", c.userID, "clients", h.ClientCount())
}

// Unregister removes a client. Only the goroutine that actually removes
// the client from the map closes its send channel, so concurrent
// unregisters during shutdown cannot double-close.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, existed := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if existed {
		close(c.send)
	}
	slog.Debug("fanout client disconnected", "user_id", c.userID, "clients", h.ClientCount())
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// PublishToAll broadcasts an event to every connected client
func (h *Hub) PublishToAll(event string, payload any) {
	h.publish(event, payload, func(*Client) bool { return true })
}

// PublishToGroup broadcasts an event to clients subscribed to the group
func (h *Hub) PublishToGroup(group, event string, payload any) {
	h.publish(event, payload, func(c *Client) bool { return c.inGroup(group) })
}

// PublishToUser delivers an event to every connection of one user
func (h *Hub) PublishToUser(userID, event string, payload any) {
	h.publish(event, payload, func(c *Client) bool { return c.userID == userID })
}

func (h *Hub) publish(event string, payload any, match func(*Client) bool) {
	data, err := json.Marshal(envelope{
		Event: event,
		Data:  payload,
		TS:    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		slog.Error("fanout marshal failed", "event", event, "error", err)
		return
	}

	// Snapshot under the lock, send outside it: a slow client must not
	// block publishers or other clients.
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if match(c) {
			c.trySend(data)
		}
	}
}

// CloseAll disconnects every client, used at shutdown
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		close(c.send)
	}
}
