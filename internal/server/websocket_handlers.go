package server

import (
	"istancool/internal/middleware"
	"istancool/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// ModerationFeed streams post events to connected editors and admins.
// @Summary Moderation feed
// @Description WebSocket upgrade. Pass the bearer token as ?token= when headers cannot be set.
// @Tags moderation
// @Security BearerAuth
// @Param token query string false "Bearer token"
// @Success 101
// @Failure 426 {object} models.ErrorResponse
// @Router /ws/moderation [get]
func (s *Server) ModerationFeed() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		userID, ok := conn.Locals("userID").(uint)
		if !ok {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			middleware.Logger.Warn("moderation feed: register failed", "user_id", userID, "error", err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}
		middleware.Logger.Info("moderation feed: connected", "user_id", userID)

		go client.WritePump()
		client.ReadPump()
	})

	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return models.RespondWithError(c, fiber.StatusUpgradeRequired,
				models.NewValidationError("WebSocket upgrade required"))
		}
		return upgrade(c)
	}
}
