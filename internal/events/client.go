package events

import (
	"errors"
	"log/slog"
	"time"

	"echofeed/internal/middleware"

	"github.com/gofiber/websocket/v2"
)

var (
	// ErrHubFull is returned when the server-wide connection cap is hit.
	ErrHubFull = errors.New("server connection limit reached")
	// ErrTooManyConns is returned when one user opens too many sockets.
	ErrTooManyConns = errors.New("user connection limit reached")
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// The feed is push-only; clients send nothing but control frames.
	maxMessageSize = 512

	sendBufferSize = 64
)

// Client is the middleman between one websocket connection and the hub.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	UserID uint

	// Buffered channel of outbound frames. Closed by the owner of the
	// connection once both pumps have stopped.
	send chan []byte
}

func newClient(hub *Hub, conn *websocket.Conn, userID uint) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		UserID: userID,
		send:   make(chan []byte, sendBufferSize),
	}
}

// TrySend queues a frame without blocking. Frames to a full or closed
// buffer are dropped and counted.
func (c *Client) TrySend(payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			middleware.FeedSocketDrops.WithLabelValues("closed").Inc()
		}
	}()

	select {
	case c.send <- payload:
	default:
		middleware.FeedSocketDrops.WithLabelValues("full").Inc()
	}
}

// ReadPump consumes inbound frames until the peer disconnects. The feed
// ignores client payloads; the loop exists to service control frames and
// detect closure.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				slog.Debug("feed socket read", "userID", c.UserID, "error", err)
			}
			return
		}
	}
}

// WritePump drains the send buffer to the peer and keeps the connection
// alive with periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
