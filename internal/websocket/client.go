package websocket

import (
	"bytes"
	"context"
	"sync"
	"time"

	"socialhub/internal/services"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024

	// Upper bound for a single client event, storage included.
	eventTimeout = 15 * time.Second
)

var (
	newline = []byte{'\n'}
	space   = []byte{' '}
)

// Client is one authenticated WebSocket connection.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	id      string
	userID  uuid.UUID
	limiter *rate.Limiter
	log     *Logger

	mu     sync.Mutex
	closed bool
}

func newClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID) *Client {
	cfg := hub.cfg
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, cfg.SendBuffer),
		id:      uuid.NewString(),
		userID:  userID,
		limiter: rate.NewLimiter(rate.Limit(cfg.EventsPerSecond), cfg.EventBurst),
		log:     hub.log,
	}
}

func (c *Client) ID() string { return c.id }

func (c *Client) UserID() uuid.UUID { return c.userID }

// Send enqueues data for the write pump. It fails when the buffer is full
// or the client is closed.
func (c *Client) Send(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Close stops the write pump, which then closes the socket.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.hub.heartbeat(c.userID)
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Error("unexpected_close", c.userID, c.id, err)
			}
			return
		}

		message = bytes.TrimSpace(bytes.Replace(message, newline, space, -1))
		if len(message) == 0 {
			continue
		}
		if !c.limiter.Allow() {
			c.log.Warn("rate_limited", c.userID, c.id, zap.Int("frame_bytes", len(message)))
			c.hub.dispatcher.SendToConnection(c, "", EventError, ErrorPayload{
				Reason: "too many events",
				Code:   "RATE_LIMITED",
			})
			continue
		}
		c.handle(message)
	}
}

// handle runs one event under a context detached from the socket so a
// disconnect does not abort a write in progress.
func (c *Client) handle(message []byte) {
	ctx, cancel := context.WithTimeout(services.WithUserContext(context.Background(), c.userID), eventTimeout)
	defer cancel()
	c.hub.router.Handle(ctx, c, message)
}

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
		}
	}
}
