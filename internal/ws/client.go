package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"lms-consulting-portal/backend/pkg/logger"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 16 * 1024

	// Outbound buffer per connection; broadcasts beyond this are dropped
	sendBufferSize = 256
)

// Identity is what a connection has told us about itself. It is set at
// most once per connection; later announcements cannot change it.
type Identity struct {
	UserID uint
	Role   string
	Name   string
	Admin  bool
}

// Client is a single websocket connection known to the hub
type Client struct {
	hub   *Hub
	relay *Relay
	conn  *websocket.Conn
	send  chan []byte
	log   *logger.Logger

	mu       sync.RWMutex
	identity *Identity
}

// NewClient wires a raw websocket connection into the hub
func NewClient(hub *Hub, relay *Relay, conn *websocket.Conn, log *logger.Logger) *Client {
	return &Client{
		hub:   hub,
		relay: relay,
		conn:  conn,
		send:  make(chan []byte, sendBufferSize),
		log:   log,
	}
}

// Identity returns the connection's identity, or nil if it has not
// announced one yet
func (c *Client) Identity() *Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.identity
}

// setIdentity binds an identity to the connection. The first announcement
// wins; it returns false if an identity was already set.
func (c *Client) setIdentity(id Identity) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.identity != nil {
		return false
	}
	c.identity = &id
	return true
}

// sendEvent queues a server event on this connection's outbound buffer.
// A full buffer drops the event rather than blocking the relay.
func (c *Client) sendEvent(eventType string, content interface{}) {
	payload, err := newEnvelope(eventType, content)
	if err != nil {
		c.log.Error("Failed to encode event", "type", eventType, "error", err)
		return
	}

	select {
	case c.send <- payload:
	default:
		c.log.Warn("Dropped event to slow client", "type", eventType)
	}
}

// ReadPump reads events from the connection and hands them to the relay.
// Events are dispatched synchronously so that everything a connection
// sends is handled to completion in the order it arrived.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Error("Websocket read error", "error", err)
			}
			break
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.log.Warn("Discarding malformed frame", "error", err)
			c.sendEvent(EventError, ErrorPayload{Code: "BAD_FRAME", Message: "malformed event"})
			continue
		}

		c.relay.Dispatch(c, &env)
	}
}

// WritePump pumps queued events to the websocket connection and keeps the
// connection alive with periodic pings
func (c *Client) WritePump() {
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
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			// Drain anything else already queued
			n := len(c.send)
			for i := 0; i < n; i++ {
				if err := c.conn.WriteMessage(websocket.TextMessage, <-c.send); err != nil {
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
