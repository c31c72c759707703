package server

import (
	"istancool/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Register handles POST /auth/register
// @Summary User registration
// @Description Create a new account with the user role
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.RegisterInput true "Registration request"
// @Success 201 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req service.RegisterInput
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	user, err := s.authService.Register(c.UserContext(), req)
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// Login handles POST /auth/login
// @Summary User login
// @Description Exchange email and password for a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.LoginInput true "Login credentials"
// @Success 200 {object} service.TokenResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req service.LoginInput
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	resp, err := s.authService.Login(c.UserContext(), req)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(resp)
}

// ForgotPassword handles POST /auth/forgot-password
// @Summary Request a password reset
// @Description Issues a single-use reset token to the account's mailer
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string} false "Email (or ?email=)"
// @Success 200 {object} object{message=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /auth/forgot-password [post]
func (s *Server) ForgotPassword(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if len(c.Body()) > 0 {
		if err := bindJSON(c, &req); err != nil {
			return nil
		}
	}
	if req.Email == "" {
		req.Email = c.Query("email")
	}

	if err := s.authService.ForgotPassword(c.UserContext(), req.Email); err != nil {
		return respondErr(c, err)
	}
	return message(c, "Password reset email sent")
}

// ResetPassword handles POST /auth/reset-password
// @Summary Reset password
// @Description Set a new password using a reset token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.ResetPasswordInput true "Reset request"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/reset-password [post]
func (s *Server) ResetPassword(c *fiber.Ctx) error {
	var req service.ResetPasswordInput
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	if err := s.authService.ResetPassword(c.UserContext(), req); err != nil {
		return respondErr(c, err)
	}
	return message(c, "Password has been reset successfully")
}

// GetMe handles GET /auth/me
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/me [get]
func (s *Server) GetMe(c *fiber.Ctx) error {
	return c.JSON(currentUser(c))
}

// UpdateMe handles PUT /auth/me
// @Summary Update own profile
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.UpdateProfileInput true "Profile fields"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/me [put]
func (s *Server) UpdateMe(c *fiber.Ctx) error {
	var req service.UpdateProfileInput
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), currentUser(c), req)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(user)
}
