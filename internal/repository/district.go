package repository

import (
	"context"

	"istancool/internal/cache"
	"istancool/internal/models"
	"istancool/internal/observability"

	"gorm.io/gorm"
)

// DistrictRepository defines persistence operations for districts.
type DistrictRepository interface {
	GetByID(ctx context.Context, id uint) (*models.District, error)
	GetBySlug(ctx context.Context, slug string) (*models.District, error)
	GetByName(ctx context.Context, name string) (*models.District, error)
	List(ctx context.Context, region models.Region) ([]models.District, error)
	Create(ctx context.Context, district *models.District) error
	Update(ctx context.Context, district *models.District) error
}

type districtRepository struct {
	db *gorm.DB
}

// NewDistrictRepository returns a new DistrictRepository implementation.
func NewDistrictRepository(db *gorm.DB) DistrictRepository {
	return &districtRepository{db: db}
}

func (r *districtRepository) GetByID(ctx context.Context, id uint) (*models.District, error) {
	var district models.District
	err := cache.Aside(ctx, cache.DistrictKey(id), &district, cache.DistrictTTL, func() error {
		defer observability.TrackQuery("select", "districts")()
		if err := r.db.WithContext(ctx).First(&district, id).Error; err != nil {
			if isNotFound(err) {
				return models.NewNotFoundMessage("District not found")
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &district, nil
}

func (r *districtRepository) GetBySlug(ctx context.Context, slug string) (*models.District, error) {
	var district models.District
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&district).Error; err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundMessage("District not found")
		}
		return nil, models.NewInternalError(err)
	}
	return &district, nil
}

// GetByName returns nil, nil when no district has the name.
func (r *districtRepository) GetByName(ctx context.Context, name string) (*models.District, error) {
	var district models.District
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&district).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &district, nil
}

// List returns every district, or only those of region when it is set.
func (r *districtRepository) List(ctx context.Context, region models.Region) ([]models.District, error) {
	districts := []models.District{}
	err := cache.Aside(ctx, cache.DistrictsKey(string(region)), &districts, cache.DistrictTTL, func() error {
		defer observability.TrackQuery("select", "districts")()
		q := r.db.WithContext(ctx).Order("name ASC")
		if region != "" {
			q = q.Where("region = ?", region)
		}
		if err := q.Find(&districts).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return districts, nil
}

// Create inserts district; Slug is the base slug on entry.
func (r *districtRepository) Create(ctx context.Context, district *models.District) error {
	defer observability.TrackQuery("insert", "districts")()

	err := writeWithSlug(ctx, r.db, "districts", district.Slug, 0, func(tx *gorm.DB, s string) error {
		district.Slug = s
		return tx.Create(district).Error
	})
	if err != nil {
		return err
	}
	cache.InvalidateDistricts(ctx)
	return nil
}

func (r *districtRepository) Update(ctx context.Context, district *models.District) error {
	defer observability.TrackQuery("update", "districts")()

	if err := r.db.WithContext(ctx).Save(district).Error; err != nil {
		if IsUniqueViolation(err) {
			return models.NewConflictError("District with this name or slug already exists")
		}
		return models.NewInternalError(err)
	}
	cache.Invalidate(ctx, cache.DistrictKey(district.ID))
	cache.InvalidateDistricts(ctx)
	return nil
}
