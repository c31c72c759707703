package server

import (
	"strings"

	"istancool/internal/authz"
	"istancool/internal/middleware"
	"istancool/internal/models"

	"github.com/gofiber/fiber/v2"
)

const localUser = "user"

// AuthRequired resolves the bearer token to an active user and stores it in
// locals. Browsers cannot set headers on a WebSocket handshake, so /ws paths
// also accept ?token=.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := ""
		if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				tokenString = strings.TrimSpace(parts[1])
			}
		}
		if tokenString == "" && strings.HasPrefix(c.Path(), "/ws") {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Not authenticated"))
		}

		user, err := s.authService.Authenticate(c.UserContext(), tokenString)
		if err != nil {
			if models.StatusFor(err) == fiber.StatusUnauthorized {
				c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
			}
			return respondErr(c, err)
		}

		c.Locals(localUser, user)
		c.Locals("userID", user.ID)
		middleware.EnrichContext(c)
		return c.Next()
	}
}

// RequireCapability rejects the request with 403 unless the authenticated
// user holds capability.
func (s *Server) RequireCapability(capability authz.Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := authz.Require(currentUser(c), capability, authz.Resource{}); err != nil {
			return respondErr(c, err)
		}
		return c.Next()
	}
}

// currentUser returns the user set by AuthRequired, or nil.
func currentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(localUser).(*models.User)
	return user
}
