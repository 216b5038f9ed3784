package websocket

import (
	"context"
	"encoding/json"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/aisle/internal/notify"
	"github.com/dukerupert/aisle/internal/search"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
)

// Client represents a single WebSocket connection.
type Client struct {
	hub    *Hub
	conn   *ws.Conn
	send   chan []byte
	search *search.Pipeline
}

// NewClient creates a Client tied to the given hub and connection.
func NewClient(hub *Hub, conn *ws.Conn) *Client {
	c := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	if hub.search != nil {
		c.search = search.New(hub.search, search.Options{
			Debounce: hub.debounce,
			OnUpdate: c.sendResult,
			Notifier: notify.Func(func(_ context.Context, n notify.Notice) { c.sendMessage(NoticeMessage(n)) }),
			Logger:   hub.logger.With("component", "search"),
		})
	}
	return c
}

// Run registers the client, starts the write pump, and runs the read pump.
// It blocks until the connection is closed, then unregisters.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)
	if c.search != nil {
		defer c.search.Close()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writePump(ctx)
	c.readPump(ctx)
}

// inbound is what a client sends. Only search requests are understood.
type inbound struct {
	Type   string `json:"type"`
	Text   string `json:"text"`
	Source string `json:"source"`
}

// readPump handles search requests until the connection closes.
func (c *Client) readPump(ctx context.Context) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			c.hub.logger.Debug("websocket: ignore malformed message", "error", err)
			continue
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg inbound) {
	if c.search == nil {
		return
	}
	switch msg.Type {
	case "search":
		if msg.Source == "voice" {
			c.search.SubmitImmediate(msg.Text)
		} else {
			c.search.SubmitTyped(msg.Text)
		}
	case "search_reset":
		c.search.Reset()
	}
}

func (c *Client) sendResult(r search.Result) {
	if r.Err != nil {
		// The notifier has already told the client.
		return
	}
	c.sendMessage(NewMessage("search", "results", "", map[string]any{
		"term":     r.Term,
		"products": r.Products,
	}))
}

// sendMessage queues msg for this client only.
func (c *Client) sendMessage(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.hub.logger.Error("marshal message", "error", err)
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// writePump drains the send channel and writes messages to the WebSocket.
// It also sends periodic pings to detect stale connections.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				// Hub closed the channel, connection is done
				return
			}
			if err := c.conn.Write(ctx, ws.MessageText, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
