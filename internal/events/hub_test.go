package events

import (
	"encoding/json"
	"testing"

	"echofeed/internal/models"

	"github.com/gofiber/websocket/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub()
	conn := &websocket.Conn{}

	client, err := hub.Register(1, conn)
	require.NoError(t, err)
	assert.Equal(t, 1, hub.ConnectionCount())
	assert.True(t, hub.UserOnline(1))
	assert.False(t, hub.UserOnline(2))

	hub.UnregisterClient(client)
	assert.Equal(t, 0, hub.ConnectionCount())
	assert.False(t, hub.UserOnline(1))

	// A second unregister of the same client is a no-op.
	hub.UnregisterClient(client)
	assert.Equal(t, 0, hub.ConnectionCount())
}

func TestHub_PerUserConnectionLimit(t *testing.T) {
	hub := NewHub()

	for i := 0; i < maxConnsPerUser; i++ {
		_, err := hub.Register(7, &websocket.Conn{})
		require.NoError(t, err)
	}

	_, err := hub.Register(7, &websocket.Conn{})
	assert.ErrorIs(t, err, ErrTooManyConns)

	// Other users are unaffected by one user's cap.
	_, err = hub.Register(8, &websocket.Conn{})
	assert.NoError(t, err)
}

func TestHub_BroadcastReachesAllClients(t *testing.T) {
	hub := NewHub()

	a, err := hub.Register(1, &websocket.Conn{})
	require.NoError(t, err)
	b, err := hub.Register(2, &websocket.Conn{})
	require.NoError(t, err)

	hub.Broadcast(Event{
		Type:       EventPostLiked,
		PostID:     42,
		ActorID:    2,
		LikesCount: 3,
	})

	for _, client := range []*Client{a, b} {
		select {
		case payload := <-client.send:
			var got Event
			require.NoError(t, json.Unmarshal(payload, &got))
			assert.Equal(t, EventPostLiked, got.Type)
			assert.Equal(t, uint(42), got.PostID)
			assert.Equal(t, 3, got.LikesCount)
		default:
			t.Fatalf("client %d received no event", client.UserID)
		}
	}
}

func TestHub_BroadcastCarriesPostPayload(t *testing.T) {
	hub := NewHub()
	client, err := hub.Register(1, &websocket.Conn{})
	require.NoError(t, err)

	hub.Broadcast(Event{
		Type:   EventPostCreated,
		PostID: 5,
		Post: &models.Post{
			ID:    5,
			Title: "Hello",
			Author: models.User{
				ID:       3,
				Username: "ana",
			},
		},
	})

	payload := <-client.send
	assert.Contains(t, string(payload), `"type":"post_created"`)
	assert.Contains(t, string(payload), `"title":"Hello"`)
	assert.Contains(t, string(payload), `"username":"ana"`)
}

func TestClient_TrySendDropsWhenBufferFull(t *testing.T) {
	hub := NewHub()
	client, err := hub.Register(1, &websocket.Conn{})
	require.NoError(t, err)

	// Fill the buffer without a running write pump.
	for i := 0; i < sendBufferSize; i++ {
		client.TrySend([]byte("x"))
	}
	assert.Len(t, client.send, sendBufferSize)

	// The overflow frame is dropped, not queued or blocked on.
	client.TrySend([]byte("overflow"))
	assert.Len(t, client.send, sendBufferSize)
}
