package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 32768 // 32KB

	// Bound on one inbound runtime message. A run outlives the connection
	// that started it, so this is the only limit.
	handleTimeout = 30 * time.Minute
)

// Error types
var (
	ErrClientSendBufferFull = errors.New("client send buffer full")
	ErrClientClosed         = errors.New("client connection closed")
)

// Client represents a websocket connection
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	ID string

	ctx    context.Context
	cancel context.CancelFunc

	closed   bool
	closedMu sync.RWMutex
}

func newClient(conn *websocket.Conn, hub *Hub, id string) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		conn:   conn,
		hub:    hub,
		send:   make(chan []byte, 256),
		ID:     id,
		ctx:    ctx,
		cancel: cancel,
	}
}

// readPump pumps messages from the websocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.ctx.Done():
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read error", "client", c.ID, "error", err)
			}
			return
		}
		c.handleTextMessage(msg)
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// handleTextMessage processes incoming text messages from the client
func (c *Client) handleTextMessage(msg []byte) {
	var in inbound
	if err := json.Unmarshal(msg, &in); err != nil {
		c.SendMessage(NewMessage(TypeError, map[string]string{"error": "malformed message"}))
		return
	}

	switch in.Type {
	case TypePing:
		c.SendMessage(NewMessage(TypePong, nil))
	case TypeMessage:
		if c.hub.onMessage == nil {
			c.SendMessage(NewMessage(TypeError, map[string]string{"error": "messages not accepted"}))
			return
		}
		// Runtime messages can block for a whole run; keep reading meanwhile.
		go c.handleRuntimeMessage(in.Data)
	default:
		c.hub.logger.Debug("unknown message type", "client", c.ID, "type", in.Type)
	}
}

func (c *Client) handleRuntimeMessage(raw json.RawMessage) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.ctx), handleTimeout)
	defer cancel()

	reply, err := c.hub.onMessage(ctx, raw)
	if err != nil {
		c.SendMessage(NewMessage(TypeError, map[string]any{"error": err.Error(), "reply": reply}))
		return
	}
	c.SendMessage(NewMessage(TypeReply, reply))
}

// SendMessage sends a message to the client
func (c *Client) SendMessage(msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.sendRaw(data)
}

func (c *Client) sendRaw(data []byte) (err error) {
	// Use defer/recover to handle race condition where channel is closed
	// between the check and the send
	defer func() {
		if r := recover(); r != nil {
			err = ErrClientClosed
		}
	}()

	c.closedMu.RLock()
	if c.closed {
		c.closedMu.RUnlock()
		return ErrClientClosed
	}
	c.closedMu.RUnlock()

	select {
	case c.send <- data:
		return nil
	default:
		return ErrClientSendBufferFull
	}
}

// IsClosed returns whether the client connection is closed
func (c *Client) IsClosed() bool {
	c.closedMu.RLock()
	defer c.closedMu.RUnlock()
	return c.closed
}

// Close closes the client connection
func (c *Client) Close() {
	c.closedMu.Lock()
	if c.closed {
		c.closedMu.Unlock()
		return
	}
	c.closed = true
	c.closedMu.Unlock()

	c.cancel()
	close(c.send)
	c.conn.Close()
}

// ServeWS registers conn with the hub and starts its pumps.
func ServeWS(hub *Hub, conn *websocket.Conn, clientID string) {
	client := newClient(conn, hub, clientID)
	hub.register <- client

	go client.writePump()
	go client.readPump()
}
