package service

import (
	"context"
	"strings"

	"istancool/internal/models"
	"istancool/internal/repository"
	"istancool/internal/slug"
	"istancool/internal/validation"
)

const defaultCategoryListLimit = 100

type CategoryService struct {
	categoryRepo repository.CategoryRepository
}

type CreateCategoryInput struct {
	Name           string  `json:"name" validate:"notblank,max=100"`
	Color          string  `json:"color" validate:"required,max=32"`
	Icon           *string `json:"icon" validate:"omitempty,max=100"`
	Description    *string `json:"description" validate:"omitempty,max=1000"`
	IsActive       *bool   `json:"is_active"`
	ShowOnHomepage bool    `json:"show_on_homepage"`
}

// UpdateCategoryInput holds the fields of a partial update; nil means unchanged.
type UpdateCategoryInput struct {
	Name           *string `json:"name" validate:"omitempty,notblank,max=100"`
	Color          *string `json:"color" validate:"omitempty,max=32"`
	Icon           *string `json:"icon" validate:"omitempty,max=100"`
	Description    *string `json:"description" validate:"omitempty,max=1000"`
	IsActive       *bool   `json:"is_active"`
	ShowOnHomepage *bool   `json:"show_on_homepage"`
}

func NewCategoryService(categoryRepo repository.CategoryRepository) *CategoryService {
	return &CategoryService{categoryRepo: categoryRepo}
}

func (s *CategoryService) ListCategories(ctx context.Context, skip, limit int) ([]models.Category, error) {
	if limit <= 0 {
		limit = defaultCategoryListLimit
	}
	return s.categoryRepo.List(ctx, skip, limit)
}

func (s *CategoryService) HomepageCategories(ctx context.Context) ([]models.Category, error) {
	return s.categoryRepo.ListHomepage(ctx)
}

func (s *CategoryService) CountCategories(ctx context.Context) (int64, error) {
	return s.categoryRepo.Count(ctx)
}

func (s *CategoryService) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	return s.categoryRepo.GetByID(ctx, id)
}

// CreateCategory rejects a taken name and stores the category under the
// first free slug derived from it.
func (s *CategoryService) CreateCategory(ctx context.Context, in CreateCategoryInput) (*models.Category, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)

	taken, err := s.categoryRepo.NameTaken(ctx, name, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, models.NewConflictError("Category with this name already exists")
	}

	category := &models.Category{
		Name:           name,
		Slug:           slug.MakeOr(name, "category"),
		Color:          in.Color,
		Icon:           in.Icon,
		Description:    in.Description,
		IsActive:       in.IsActive == nil || *in.IsActive,
		ShowOnHomepage: in.ShowOnHomepage,
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// UpdateCategory applies a partial update. A rename recomputes the slug and
// fails with a conflict when another category already owns it.
func (s *CategoryService) UpdateCategory(ctx context.Context, id uint, in UpdateCategoryInput) (*models.Category, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name != category.Name {
			taken, err := s.categoryRepo.NameTaken(ctx, name, category.ID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, models.NewConflictError("Category with this name already exists")
			}

			newSlug := slug.MakeOr(name, "category")
			owner, err := s.categoryRepo.GetBySlug(ctx, newSlug)
			if err != nil {
				return nil, err
			}
			if owner != nil && owner.ID != category.ID {
				return nil, models.NewConflictError("Category with this slug already exists")
			}
			category.Name = name
			category.Slug = newSlug
		}
	}
	if in.Color != nil {
		category.Color = *in.Color
	}
	if in.Icon != nil {
		category.Icon = in.Icon
	}
	if in.Description != nil {
		category.Description = in.Description
	}
	if in.IsActive != nil {
		category.IsActive = *in.IsActive
	}
	if in.ShowOnHomepage != nil {
		category.ShowOnHomepage = *in.ShowOnHomepage
	}

	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *CategoryService) DeleteCategory(ctx context.Context, id uint) error {
	return s.categoryRepo.Delete(ctx, id)
}

// ToggleStatus flips is_active.
func (s *CategoryService) ToggleStatus(ctx context.Context, id uint) (*models.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	category.IsActive = !category.IsActive
	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// ToggleHomepage flips show_on_homepage.
func (s *CategoryService) ToggleHomepage(ctx context.Context, id uint) (*models.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	category.ShowOnHomepage = !category.ShowOnHomepage
	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}
