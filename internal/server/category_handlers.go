package server

import (
	"istancool/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListCategories handles GET /categories
// @Summary List categories
// @Tags categories
// @Produce json
// @Param skip query int false "Offset"
// @Param limit query int false "Page size (default 100)"
// @Success 200 {array} models.Category
// @Router /categories [get]
func (s *Server) ListCategories(c *fiber.Ctx) error {
	page := parsePagination(c)
	categories, err := s.categoryService.ListCategories(c.UserContext(), page.Skip, page.Limit)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(categories)
}

// HomepageCategories handles GET /categories/homepage
// @Summary Categories shown on the homepage
// @Tags categories
// @Produce json
// @Success 200 {array} models.Category
// @Router /categories/homepage [get]
func (s *Server) HomepageCategories(c *fiber.Ctx) error {
	categories, err := s.categoryService.HomepageCategories(c.UserContext())
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(categories)
}

// CountCategories handles GET /categories/count
// @Summary Count categories
// @Tags categories
// @Produce json
// @Success 200 {object} object{count=int}
// @Router /categories/count [get]
func (s *Server) CountCategories(c *fiber.Ctx) error {
	count, err := s.categoryService.CountCategories(c.UserContext())
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"count": count})
}

// GetCategory handles GET /categories/:id
// @Summary Get a category
// @Tags categories
// @Produce json
// @Param id path int true "Category ID"
// @Success 200 {object} models.Category
// @Failure 404 {object} models.ErrorResponse
// @Router /categories/{id} [get]
func (s *Server) GetCategory(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	category, err := s.categoryService.GetCategory(c.UserContext(), id)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(category)
}

// CreateCategory handles POST /categories
// @Summary Create a category
// @Tags categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.CreateCategoryInput true "Category"
// @Success 201 {object} models.Category
// @Failure 409 {object} models.ErrorResponse
// @Router /categories [post]
func (s *Server) CreateCategory(c *fiber.Ctx) error {
	var req service.CreateCategoryInput
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	category, err := s.categoryService.CreateCategory(c.UserContext(), req)
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

// UpdateCategory handles PUT /categories/:id
// @Summary Update a category
// @Description A rename recomputes the slug
// @Tags categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Category ID"
// @Param request body service.UpdateCategoryInput true "Changed fields"
// @Success 200 {object} models.Category
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /categories/{id} [put]
func (s *Server) UpdateCategory(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req service.UpdateCategoryInput
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	category, err := s.categoryService.UpdateCategory(c.UserContext(), id, req)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(category)
}

// DeleteCategory handles DELETE /categories/:id
// @Summary Delete a category
// @Tags categories
// @Produce json
// @Security BearerAuth
// @Param id path int true "Category ID"
// @Success 200 {object} object{message=string}
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /categories/{id} [delete]
func (s *Server) DeleteCategory(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.categoryService.DeleteCategory(c.UserContext(), id); err != nil {
		return respondErr(c, err)
	}
	return message(c, "Category deleted successfully")
}

// ToggleCategoryStatus handles PATCH /categories/:id/toggle-status
// @Summary Toggle category is_active
// @Tags categories
// @Produce json
// @Security BearerAuth
// @Param id path int true "Category ID"
// @Success 200 {object} object{message=string}
// @Router /categories/{id}/toggle-status [patch]
func (s *Server) ToggleCategoryStatus(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	category, err := s.categoryService.ToggleStatus(c.UserContext(), id)
	if err != nil {
		return respondErr(c, err)
	}
	return message(c, "Category status changed to "+onOff(category.IsActive, "active", "inactive"))
}

// ToggleCategoryHomepage handles PATCH /categories/:id/toggle-homepage
// @Summary Toggle category show_on_homepage
// @Tags categories
// @Produce json
// @Security BearerAuth
// @Param id path int true "Category ID"
// @Success 200 {object} object{message=string}
// @Router /categories/{id}/toggle-homepage [patch]
func (s *Server) ToggleCategoryHomepage(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	category, err := s.categoryService.ToggleHomepage(c.UserContext(), id)
	if err != nil {
		return respondErr(c, err)
	}
	return message(c, "Category homepage visibility changed to "+onOff(category.ShowOnHomepage, "shown", "hidden"))
}
