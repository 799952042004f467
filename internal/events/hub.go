// Package events delivers live feed updates to connected websocket clients.
package events

import (
	"encoding/json"
	"log/slog"
	"sync"

	"echofeed/internal/models"

	"github.com/gofiber/websocket/v2"
)

const (
	// Per-user connection cap. A browser with a handful of tabs stays
	// well under this.
	maxConnsPerUser = 8
	maxTotalConns   = 10000
)

// Event types pushed to feed subscribers.
const (
	EventPostCreated  = "post_created"
	EventPostUpdated  = "post_updated"
	EventPostDeleted  = "post_deleted"
	EventPostLiked    = "post_liked"
	EventPostUnliked  = "post_unliked"
	EventCommentAdded = "comment_added"
)

// Event is a single feed update pushed to all subscribers.
type Event struct {
	Type       string          `json:"type"`
	PostID     uint            `json:"postId"`
	ActorID    uint            `json:"actorId,omitempty"`
	Post       *models.Post    `json:"post,omitempty"`
	Comment    *models.Comment `json:"comment,omitempty"`
	LikesCount int             `json:"likesCount,omitempty"`
}

// Hub fans events out to every connected client. The feed is global, so
// there is no per-room bookkeeping, just one subscriber set.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]struct{}
	totalConns int
	perUser    map[uint]int
}

// NewHub creates an empty feed hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		perUser: make(map[uint]int),
	}
}

// Name identifies the hub in logs and metrics.
func (h *Hub) Name() string { return "feed" }

// Register adds a connection for userID, enforcing connection limits.
func (h *Hub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.totalConns >= maxTotalConns {
		return nil, ErrHubFull
	}
	if h.perUser[userID] >= maxConnsPerUser {
		return nil, ErrTooManyConns
	}

	client := newClient(h, conn, userID)
	h.clients[client] = struct{}{}
	h.perUser[userID]++
	h.totalConns++
	return client, nil
}

// UnregisterClient removes a client. Safe to call more than once.
func (h *Hub) UnregisterClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	h.totalConns--
	if h.perUser[c.UserID] > 1 {
		h.perUser[c.UserID]--
	} else {
		delete(h.perUser, c.UserID)
	}
}

// Broadcast pushes the event to every connected client. Slow clients drop
// the event rather than block the publisher.
func (h *Hub) Broadcast(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("marshal feed event", "type", event.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		client.TrySend(payload)
	}
}

// ConnectionCount returns the number of open connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalConns
}

// UserOnline reports whether userID has at least one open connection.
func (h *Hub) UserOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.perUser[userID] > 0
}
