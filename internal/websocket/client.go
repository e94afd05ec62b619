package websocket

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Connection timing. Pongs must arrive inside pongWait or the peer is
// treated as gone, so pings go out well before the deadline.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	outboxSize     = 256
)

// Client is one connection to a user's event feed. The feed is one-way:
// the server pushes ledger events, the peer only answers pings.
type Client struct {
	id     string
	uid    string
	conn   *websocket.Conn
	hub    *Hub
	outbox chan []byte

	mu     sync.Mutex
	closed bool
}

func NewClient(conn *websocket.Conn, uid string, hub *Hub) *Client {
	return &Client{
		id:     uuid.New().String(),
		uid:    uid,
		conn:   conn,
		hub:    hub,
		outbox: make(chan []byte, outboxSize),
	}
}

func (c *Client) ID() string  { return c.id }
func (c *Client) UID() string { return c.uid }

// Send queues an event frame for delivery. A full outbox means the peer
// stopped draining; the client is reported closed rather than blocking
// the hub behind a slow connection.
func (c *Client) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.outbox <- data:
		return nil
	default:
		return ErrClientClosed
	}
}

// Close shuts the connection down. Safe to call more than once; both loops
// call it on their way out.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.outbox)
	c.mu.Unlock()
	return c.conn.Close()
}

// ReadLoop drains the connection until the peer goes away, refreshing the
// read deadline on every pong. Inbound frames are discarded.
func (c *Client) ReadLoop() {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().
					Err(err).
					Str("client_id", c.id).
					Str("uid", c.uid).
					Msg("WebSocket closed unexpectedly")
			}
			return
		}
	}
}

// WriteLoop delivers queued frames and keeps the connection alive with
// pings. A closed outbox means the hub shut this client down.
func (c *Client) WriteLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case frame, ok := <-c.outbox:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Warn().
					Err(err).
					Str("client_id", c.id).
					Str("uid", c.uid).
					Msg("WebSocket write failed")
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
