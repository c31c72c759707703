package repository

import (
	"context"
	"strings"

	"istancool/internal/cache"
	"istancool/internal/models"
	"istancool/internal/observability"

	"gorm.io/gorm"
)

// PostFilter narrows the public post list. Name and search filters are
// case-insensitive substring matches.
type PostFilter struct {
	CategoryName string
	DistrictName string
	Search       string
	Offset       int
	Limit        int
}

// AdminPostFilter narrows the staff post list, which ignores moderation state
// unless Status is set.
type AdminPostFilter struct {
	Status     models.PostStatus
	CategoryID uint
	Offset     int
	Limit      int
}

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	GetBySlug(ctx context.Context, slug string) (*models.Post, error)
	Create(ctx context.Context, post *models.Post) error
	Update(ctx context.Context, post *models.Post, reslug bool) error
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error
	Delete(ctx context.Context, id uint) error
	ListApproved(ctx context.Context, f PostFilter) ([]models.Post, error)
	ListAll(ctx context.Context, f AdminPostFilter) ([]models.Post, error)
	ListFeatured(ctx context.Context, offset, limit int) ([]models.Post, error)
	ListWithLocation(ctx context.Context) ([]models.Post, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository returns a new PostRepository implementation.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Category").Preload("District").Preload("Author")
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	defer observability.TrackQuery("select", "posts")()

	var post models.Post
	if err := r.withRelations(r.db.WithContext(ctx)).First(&post, id).Error; err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundMessage("Post not found")
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *postRepository) GetBySlug(ctx context.Context, slug string) (*models.Post, error) {
	defer observability.TrackQuery("select", "posts")()

	var post models.Post
	if err := r.withRelations(r.db.WithContext(ctx)).Where("slug = ?", slug).First(&post).Error; err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundMessage("Post not found")
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

// Create inserts post; Slug is the base slug on entry and the reserved slug
// on return.
func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("insert", "posts")()

	err := writeWithSlug(ctx, r.db, "posts", post.Slug, 0, func(tx *gorm.DB, s string) error {
		post.Slug = s
		return tx.Omit("Category", "District", "Author").Create(post).Error
	})
	if err != nil {
		return err
	}
	cache.InvalidatePostLists(ctx)
	return nil
}

// Update saves every column of post. With reslug, Slug is treated as a new
// base and resolved against the other posts first.
func (r *postRepository) Update(ctx context.Context, post *models.Post, reslug bool) error {
	defer observability.TrackQuery("update", "posts")()

	save := func(tx *gorm.DB) error {
		return tx.Omit("Category", "District", "Author").Save(post).Error
	}

	var err error
	if reslug {
		err = writeWithSlug(ctx, r.db, "posts", post.Slug, post.ID, func(tx *gorm.DB, s string) error {
			post.Slug = s
			return save(tx)
		})
	} else if err = save(r.db.WithContext(ctx)); err != nil {
		err = models.NewInternalError(err)
	}
	if err != nil {
		return err
	}
	cache.InvalidatePostLists(ctx)
	return nil
}

// UpdateFields writes only the given columns.
func (r *postRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	defer observability.TrackQuery("update", "posts")()

	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundMessage("Post not found")
	}
	cache.InvalidatePostLists(ctx)
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	defer observability.TrackQuery("delete", "posts")()

	res := r.db.WithContext(ctx).Delete(&models.Post{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundMessage("Post not found")
	}
	cache.InvalidatePostLists(ctx)
	return nil
}

func likePattern(s string) string {
	return "%" + strings.ToLower(strings.TrimSpace(s)) + "%"
}

// ListApproved is the public list: approved, active posts, newest first.
func (r *postRepository) ListApproved(ctx context.Context, f PostFilter) ([]models.Post, error) {
	defer observability.TrackQuery("select", "posts")()

	q := r.withRelations(r.db.WithContext(ctx).Model(&models.Post{})).
		Where("posts.status = ? AND posts.is_active = ?", models.PostApproved, true)

	if f.CategoryName != "" {
		q = q.Joins("JOIN categories ON categories.id = posts.category_id").
			Where("LOWER(categories.name) LIKE ?", likePattern(f.CategoryName))
	}
	if f.DistrictName != "" {
		q = q.Joins("JOIN districts ON districts.id = posts.district_id").
			Where("LOWER(districts.name) LIKE ?", likePattern(f.DistrictName))
	}
	if f.Search != "" {
		pattern := likePattern(f.Search)
		q = q.Where("(LOWER(posts.title) LIKE ? OR LOWER(posts.content) LIKE ?)", pattern, pattern)
	}

	posts := []models.Post{}
	err := q.Order("posts.created_at DESC").Order("posts.id DESC").
		Offset(f.Offset).Limit(f.Limit).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) ListAll(ctx context.Context, f AdminPostFilter) ([]models.Post, error) {
	defer observability.TrackQuery("select", "posts")()

	q := r.withRelations(r.db.WithContext(ctx))
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.CategoryID != 0 {
		q = q.Where("category_id = ?", f.CategoryID)
	}

	posts := []models.Post{}
	if err := q.Order("created_at DESC").Order("id DESC").Offset(f.Offset).Limit(f.Limit).Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// ListFeatured returns featured, approved, active posts by featured_order
// (unordered last), then newest.
func (r *postRepository) ListFeatured(ctx context.Context, offset, limit int) ([]models.Post, error) {
	defer observability.TrackQuery("select", "posts")()

	posts := []models.Post{}
	err := r.db.WithContext(ctx).Preload("Category").
		Where("is_featured = ? AND status = ? AND is_active = ?", true, models.PostApproved, true).
		Order("CASE WHEN featured_order IS NULL THEN 1 ELSE 0 END").
		Order("featured_order ASC").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// ListWithLocation returns approved, active posts carrying both coordinates.
func (r *postRepository) ListWithLocation(ctx context.Context) ([]models.Post, error) {
	defer observability.TrackQuery("select", "posts")()

	posts := []models.Post{}
	err := r.db.WithContext(ctx).Preload("Category").
		Where("status = ? AND is_active = ?", models.PostApproved, true).
		Where("latitude IS NOT NULL AND latitude <> ''").
		Where("longitude IS NOT NULL AND longitude <> ''").
		Order("id ASC").
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}
