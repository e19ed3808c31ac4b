package server

import (
	"encoding/json"
	"log/slog"

	"clubhouse/internal/middleware"
	"clubhouse/internal/models"
	"clubhouse/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// upgradeRequired rejects plain HTTP requests to websocket routes and
// validates the watched entity before the upgrade.
func (s *Server) upgradeRequired(c *fiber.Ctx) error {
	kind, err := models.ParseEntityKind(c.Query("kind"))
	if err != nil {
		return respondError(c, err)
	}
	entityID := c.Query("entity_id")
	if entityID == "" {
		return respondError(c, models.NewValidationError("entity_id is required"))
	}
	ok, err := s.entityRepo.Exists(c.UserContext(), kind, entityID)
	if err != nil {
		return respondError(c, err)
	}
	if !ok {
		return respondError(c, models.NewNotFoundError("Entity", entityID))
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	c.Locals("topic", notifications.CommentChannel(kind, entityID))
	return c.Next()
}

// CommentFeedHandler streams change notifications for one entity's comments.
// Watchers receive {"type":"comments_changed","payload":{...}} and refetch
// the page they are showing.
func (s *Server) CommentFeedHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		middleware.ActiveWebSockets.Inc()
		defer middleware.ActiveWebSockets.Dec()

		topic, _ := conn.Locals("topic").(string)
		viewerID, _ := conn.Locals("userID").(string)

		client, err := s.hub.Register(topic, viewerID, conn)
		if err != nil {
			middleware.Logger.Warn("comment feed registration refused",
				slog.String("topic", topic),
				slog.String("error", err.Error()))
			frame, _ := json.Marshal(fiber.Map{"error": err.Error()})
			_ = conn.WriteMessage(websocket.TextMessage, frame)
			_ = conn.Close()
			return
		}

		go client.WritePump()
		// Blocks until the peer goes away, then unregisters the client.
		client.ReadPump()
	})
}
