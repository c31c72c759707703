package server

import (
	"github.com/gofiber/fiber/v2"
)

// ListUsers handles GET /users
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param skip query int false "Offset"
// @Param limit query int false "Page size (default 100)"
// @Success 200 {array} models.User
// @Failure 403 {object} models.ErrorResponse
// @Router /users [get]
func (s *Server) ListUsers(c *fiber.Ctx) error {
	page := parsePagination(c)
	users, err := s.userService.ListUsers(c.UserContext(), page.Skip, page.Limit)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(users)
}

// CountUsers handles GET /users/count
// @Summary Count users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{count=int}
// @Router /users/count [get]
func (s *Server) CountUsers(c *fiber.Ctx) error {
	count, err := s.userService.CountUsers(c.UserContext())
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"count": count})
}

// DeleteUser handles DELETE /users/:id
// @Summary Delete a user
// @Tags users
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /users/{id} [delete]
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.userService.DeleteUser(c.UserContext(), id); err != nil {
		return respondErr(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
