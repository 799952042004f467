package server

import (
	"encoding/json"
	"log/slog"

	"echofeed/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RequireWebSocketUpgrade rejects plain HTTP requests to websocket routes.
func RequireWebSocketUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// FeedSocketHandler upgrades the connection and subscribes the caller to
// live feed events until the socket closes.
func (s *Server) FeedSocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		middleware.ActiveFeedSockets.Inc()
		defer middleware.ActiveFeedSockets.Dec()

		userIDVal := conn.Locals("userID")
		if userIDVal == nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}
		userID := userIDVal.(uint)

		if s.feedHub == nil {
			_ = conn.Close()
			return
		}

		client, err := s.feedHub.Register(userID, conn)
		if err != nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		slog.Info("feed socket connected", "userID", userID)

		welcome, _ := json.Marshal(fiber.Map{"type": "connected", "userId": userID})
		client.TrySend(welcome)

		go client.WritePump()
		// ReadPump blocks until the peer disconnects and unregisters the
		// client on the way out.
		client.ReadPump()

		slog.Info("feed socket disconnected", "userID", userID)
	})
}
