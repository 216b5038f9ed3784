package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/aisle/internal/notify"
	"github.com/dukerupert/aisle/internal/search"
)

// Message represents a real-time sync notification broadcast to all clients.
type Message struct {
	Type   string         `json:"type"`
	Entity string         `json:"entity"`
	Action string         `json:"action"`
	ID     string         `json:"id,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// NewMessage creates a Message with the Type field derived from entity and action.
func NewMessage(entity, action, id string, extra map[string]any) Message {
	return Message{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		ID:     id,
		Extra:  extra,
	}
}

// NoticeMessage wraps a user notice. Notices are sent as type "notice".
func NoticeMessage(n notify.Notice) Message {
	return Message{
		Type:   "notice",
		Entity: "notice",
		Action: string(n.Level),
		Extra: map[string]any{
			"level":   n.Level,
			"kind":    n.Kind,
			"message": n.Message,
		},
	}
}

// Hub maintains the set of active WebSocket clients and broadcasts messages.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger

	search   search.Func
	debounce time.Duration
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// WithSearch gives every client connected afterwards its own search
// pipeline over fn.
func (h *Hub) WithSearch(fn search.Func, debounce time.Duration) *Hub {
	h.search = fn
	h.debounce = debounce
	return h
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends a message to all connected clients.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Client buffer full, drop message to avoid blocking
		}
	}
}

// Notify broadcasts a user notice, making the hub a notify.Notifier.
func (h *Hub) Notify(_ context.Context, n notify.Notice) {
	h.Broadcast(NoticeMessage(n))
}

// ResetSearches clears every client's search box, as after an item is added
// from the results.
func (h *Hub) ResetSearches() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.search != nil {
			c.search.Reset()
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
