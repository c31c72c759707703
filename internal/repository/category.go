package repository

import (
	"context"

	"istancool/internal/cache"
	"istancool/internal/models"
	"istancool/internal/observability"

	"gorm.io/gorm"
)

// CategoryRepository defines persistence operations for categories.
type CategoryRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Category, error)
	GetBySlug(ctx context.Context, slug string) (*models.Category, error)
	NameTaken(ctx context.Context, name string, excludeID uint) (bool, error)
	List(ctx context.Context, offset, limit int) ([]models.Category, error)
	ListHomepage(ctx context.Context) ([]models.Category, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, category *models.Category) error
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id uint) error
}

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository returns a new CategoryRepository implementation.
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) GetByID(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	err := cache.Aside(ctx, cache.CategoryKey(id), &category, cache.CategoryTTL, func() error {
		defer observability.TrackQuery("select", "categories")()
		if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
			if isNotFound(err) {
				return models.NewNotFoundMessage("Category not found")
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// GetBySlug returns nil, nil when the slug is free.
func (r *categoryRepository) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&category).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &category, nil
}

func (r *categoryRepository) NameTaken(ctx context.Context, name string, excludeID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.Category{}).Where("name = ?", name)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *categoryRepository) List(ctx context.Context, offset, limit int) ([]models.Category, error) {
	defer observability.TrackQuery("select", "categories")()

	categories := []models.Category{}
	if err := r.db.WithContext(ctx).Order("id ASC").Offset(offset).Limit(limit).Find(&categories).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return categories, nil
}

// ListHomepage returns active categories flagged for the homepage.
func (r *categoryRepository) ListHomepage(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	err := cache.Aside(ctx, cache.HomepageCategoriesKey, &categories, cache.CategoryTTL, func() error {
		defer observability.TrackQuery("select", "categories")()
		err := r.db.WithContext(ctx).
			Where("is_active = ? AND show_on_homepage = ?", true, true).
			Order("name ASC").
			Find(&categories).Error
		if err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *categoryRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Category{}).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

// Create inserts category. Its Slug holds the base slug on entry and the
// first free variant on return.
func (r *categoryRepository) Create(ctx context.Context, category *models.Category) error {
	defer observability.TrackQuery("insert", "categories")()

	err := writeWithSlug(ctx, r.db, "categories", category.Slug, 0, func(tx *gorm.DB, s string) error {
		category.Slug = s
		return tx.Create(category).Error
	})
	if err != nil {
		return err
	}
	cache.InvalidateCategory(ctx, category.ID)
	return nil
}

// Update saves every column. A unique violation on name or slug is a conflict.
func (r *categoryRepository) Update(ctx context.Context, category *models.Category) error {
	defer observability.TrackQuery("update", "categories")()

	if err := r.db.WithContext(ctx).Save(category).Error; err != nil {
		if IsUniqueViolation(err) {
			return models.NewConflictError("Category with this name or slug already exists")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateCategory(ctx, category.ID)
	return nil
}

func (r *categoryRepository) Delete(ctx context.Context, id uint) error {
	defer observability.TrackQuery("delete", "categories")()

	err := deleteUnreferenced(ctx, r.db, &models.Category{}, id, "category_id",
		"Category not found", "Category still has posts")
	if err != nil {
		return err
	}
	cache.InvalidateCategory(ctx, id)
	return nil
}
