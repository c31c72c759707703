package server

import "github.com/gofiber/fiber/v2"

// ListDistricts handles GET /districts
// @Summary List districts
// @Tags districts
// @Produce json
// @Param region query string false "europe or asia"
// @Success 200 {array} models.District
// @Failure 400 {object} models.ErrorResponse
// @Router /districts [get]
func (s *Server) ListDistricts(c *fiber.Ctx) error {
	districts, err := s.districtService.ListDistricts(c.UserContext(), c.Query("region"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(districts)
}

// GetDistrict handles GET /districts/:id
// @Summary Get a district
// @Tags districts
// @Produce json
// @Param id path int true "District ID"
// @Success 200 {object} models.District
// @Failure 404 {object} models.ErrorResponse
// @Router /districts/{id} [get]
func (s *Server) GetDistrict(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	district, err := s.districtService.GetDistrict(c.UserContext(), id)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(district)
}

// GetDistrictBySlug handles GET /districts/slug/:slug
// @Summary Get a district by slug
// @Tags districts
// @Produce json
// @Param slug path string true "District slug"
// @Success 200 {object} models.District
// @Failure 404 {object} models.ErrorResponse
// @Router /districts/slug/{slug} [get]
func (s *Server) GetDistrictBySlug(c *fiber.Ctx) error {
	district, err := s.districtService.GetDistrictBySlug(c.UserContext(), c.Params("slug"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(district)
}
