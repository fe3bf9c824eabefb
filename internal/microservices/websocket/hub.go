package websocket

import (
	"context"
	"log/slog"
	"sync/atomic"

	"darwinawards/internal/display"
)

// Hub fans the display state out to every connected renderer.
// All client bookkeeping happens on the Run goroutine; other goroutines
// talk to it through channels.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}

	clients map[*Client]struct{}
	last    []byte // latest state, replayed to new clients
	count   atomic.Int32
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 16),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
		logger:     logger,
	}
}

// Run serves the hub until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.count.Store(int32(len(h.clients)))
			h.logger.Info("feed_client_connected", "client_id", c.ID, "clients", len(h.clients))
			if h.last != nil {
				h.deliver(c, h.last)
			}

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
				h.logger.Info("feed_client_disconnected", "client_id", c.ID, "clients", len(h.clients))
			}

		case data := <-h.broadcast:
			h.last = data
			for c := range h.clients {
				h.deliver(c, data)
			}
		}
	}
}

// deliver queues data for c, dropping clients that cannot keep up.
func (h *Hub) deliver(c *Client, data []byte) {
	select {
	case c.send <- data:
	default:
		h.logger.Warn("feed_client_slow", "client_id", c.ID)
		h.drop(c)
	}
}

func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	h.count.Store(int32(len(h.clients)))
	close(c.send)
}

// BroadcastEntries publishes the visible deaths to all clients.
func (h *Hub) BroadcastEntries(entries []display.Entry) {
	data, err := NewDeathsMessage(entries).ToJSON()
	if err != nil {
		h.logger.Error("feed_encode_failed", "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.done:
	}
}

// Register adds c to the hub. It reports false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ClientCount returns the number of connected renderers.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}
