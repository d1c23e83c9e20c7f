// Package realtime streams status and run events to websocket clients.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/neboloop/promptpulse/internal/logging"
)

// MessageHandler answers a client's inbound runtime message. The returned
// value is sent back to that client only.
type MessageHandler func(ctx context.Context, raw json.RawMessage) (any, error)

// Hub fans messages out to every connected client.
type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	onMessage MessageHandler
	logger    *slog.Logger

	mu    sync.RWMutex
	count int
}

// NewHub creates a hub. onMessage may be nil.
func NewHub(onMessage MessageHandler) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		onMessage:  onMessage,
		logger:     logging.With("realtime"),
	}
}

// Run serves registrations and broadcasts until ctx ends.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				c.Close()
				delete(h.clients, c)
			}
			h.setCount(0)
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.setCount(len(h.clients))
			h.logger.Debug("client connected", "client", c.ID, "clients", len(h.clients))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.Close()
				h.setCount(len(h.clients))
				h.logger.Debug("client disconnected", "client", c.ID, "clients", len(h.clients))
			}

		case data := <-h.broadcast:
			for c := range h.clients {
				if err := c.sendRaw(data); err != nil {
					h.logger.Debug("dropping slow client", "client", c.ID, "error", err)
					delete(h.clients, c)
					c.Close()
				}
			}
			h.setCount(len(h.clients))
		}
	}
}

// Broadcast queues msg for every client. It never blocks; messages are
// dropped when the queue is full.
func (h *Hub) Broadcast(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Warn("unencodable broadcast", "type", msg.Type, "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("broadcast queue full, dropping", "type", msg.Type)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}

// Ticker broadcasts snapshot() as a status message every interval while
// clients are connected.
func (h *Hub) Ticker(ctx context.Context, interval time.Duration, snapshot func(context.Context) any) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if h.ClientCount() == 0 {
				continue
			}
			h.Broadcast(NewMessage(TypeStatus, snapshot(ctx)))
		}
	}
}
