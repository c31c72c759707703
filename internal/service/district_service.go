package service

import (
	"context"
	"strings"

	"istancool/internal/models"
	"istancool/internal/repository"
)

type DistrictService struct {
	districtRepo repository.DistrictRepository
}

func NewDistrictService(districtRepo repository.DistrictRepository) *DistrictService {
	return &DistrictService{districtRepo: districtRepo}
}

// ListDistricts returns every district, or those of one region when region
// is set.
func (s *DistrictService) ListDistricts(ctx context.Context, region string) ([]models.District, error) {
	r := models.Region(strings.ToLower(strings.TrimSpace(region)))
	if r != "" && !r.Valid() {
		return nil, models.NewValidationError("region must be one of: europe, asia")
	}
	return s.districtRepo.List(ctx, r)
}

func (s *DistrictService) GetDistrict(ctx context.Context, id uint) (*models.District, error) {
	return s.districtRepo.GetByID(ctx, id)
}

func (s *DistrictService) GetDistrictBySlug(ctx context.Context, slug string) (*models.District, error) {
	return s.districtRepo.GetBySlug(ctx, slug)
}
