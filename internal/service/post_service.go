package service

import (
	"context"
	"strings"
	"time"

	"istancool/internal/authz"
	"istancool/internal/cache"
	"istancool/internal/media"
	"istancool/internal/middleware"
	"istancool/internal/models"
	"istancool/internal/observability"
	"istancool/internal/repository"
	"istancool/internal/slug"
	"istancool/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultPostListLimit  = 100
	defaultAdminListLimit = 10
	defaultFeaturedLimit  = 10
	maxPostListLimit      = 500
	featuredSummaryLength = 100
)

// EventPublisher fans post lifecycle events out to the moderation feed.
type EventPublisher interface {
	PublishPostEvent(ctx context.Context, ev models.PostEvent) error
}

type PostService struct {
	postRepo     repository.PostRepository
	categoryRepo repository.CategoryRepository
	districtRepo repository.DistrictRepository
	uploader     *media.Uploader
	events       EventPublisher
}

// GridCell addresses the j-th block inside the grid at top-level index i.
type GridCell struct {
	Block int
	Cell  int
}

type CreatePostInput struct {
	Title      string        `json:"title" validate:"notblank,max=300"`
	Content    *string       `json:"content"`
	CategoryID uint          `json:"category_id" validate:"required"`
	DistrictID *uint         `json:"district_id"`
	Latitude   *string       `json:"latitude" validate:"omitempty,latitude"`
	Longitude  *string       `json:"longitude" validate:"omitempty,longitude"`
	Blocks     models.Blocks `json:"blocks"`

	CoverImage  *media.File             `json:"-"`
	BlockImages map[int]media.File      `json:"-"`
	GridImages  map[GridCell]media.File `json:"-"`
}

// UpdatePostInput is a partial update; nil fields are left unchanged. Status
// is not editable here.
type UpdatePostInput struct {
	Title      *string        `json:"title" validate:"omitempty,notblank,max=300"`
	Content    *string        `json:"content"`
	CoverImage *string        `json:"cover_image" validate:"omitempty,url"`
	CategoryID *uint          `json:"category_id"`
	DistrictID *uint          `json:"district_id"`
	Latitude   *string        `json:"latitude" validate:"omitempty,latitude"`
	Longitude  *string        `json:"longitude" validate:"omitempty,longitude"`
	IsActive   *bool          `json:"is_active"`
	Blocks     *models.Blocks `json:"blocks"`
}

type ListPostsInput struct {
	CategoryName string
	DistrictName string
	Search       string
	Skip         int
	Limit        int
}

type AdminListPostsInput struct {
	Status     string
	CategoryID uint
	Skip       int
	Limit      int
}

func NewPostService(
	postRepo repository.PostRepository,
	categoryRepo repository.CategoryRepository,
	districtRepo repository.DistrictRepository,
	uploader *media.Uploader,
	events EventPublisher,
) *PostService {
	return &PostService{
		postRepo:     postRepo,
		categoryRepo: categoryRepo,
		districtRepo: districtRepo,
		uploader:     uploader,
		events:       events,
	}
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > maxPostListLimit {
		return maxPostListLimit
	}
	return limit
}

func (s *PostService) publish(ctx context.Context, eventType string, post *models.Post, actor *models.User) {
	if s.events == nil {
		return
	}
	ev := models.PostEvent{
		Type:     eventType,
		PostID:   post.ID,
		Slug:     post.Slug,
		Title:    post.Title,
		Status:   post.Status,
		AuthorID: post.AuthorID,
		At:       time.Now().UTC(),
	}
	if actor != nil {
		ev.ActorID = actor.ID
	}
	if err := s.events.PublishPostEvent(ctx, ev); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish post event", "type", eventType, "post_id", post.ID, "error", err)
	}
}

// activeCategory loads a category that posts may be assigned to.
func (s *PostService) activeCategory(ctx context.Context, id uint) (*models.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !category.IsActive {
		return nil, models.NewValidationError("Category is not active")
	}
	return category, nil
}

func (s *PostService) checkDistrict(ctx context.Context, id *uint) error {
	if id == nil || *id == 0 {
		return nil
	}
	_, err := s.districtRepo.GetByID(ctx, *id)
	return err
}

// resolveImages uploads every attached block image and writes its URL into
// the matching block. Grid cells that receive an image lose their text.
func resolveImages(ctx context.Context, batch *media.Batch, blocks models.Blocks, in CreatePostInput) error {
	for i := range blocks {
		b := &blocks[i]
		switch b.Type {
		case models.BlockImage:
			f, ok := in.BlockImages[i]
			if !ok {
				continue
			}
			url, err := batch.Upload(ctx, f)
			if err != nil {
				return err
			}
			b.Src = url
		case models.BlockGrid:
			for j := range b.Blocks {
				cell := &b.Blocks[j]
				if cell.Type != models.BlockImage {
					continue
				}
				f, ok := in.GridImages[GridCell{Block: i, Cell: j}]
				if !ok {
					continue
				}
				url, err := batch.Upload(ctx, f)
				if err != nil {
					return err
				}
				cell.Src = url
				cell.Content = ""
			}
		}
	}
	return nil
}

// CreatePost stores a post by actor. Images are uploaded first; if anything
// after that fails, the uploads of this call are deleted again.
func (s *PostService) CreatePost(ctx context.Context, actor *models.User, in CreatePostInput) (post *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "PostService.CreatePost",
		attribute.Int64("category.id", int64(in.CategoryID)))
	defer func() { observability.EndSpan(span, err) }()

	if err := authz.Require(actor, authz.CreatePost, authz.Resource{}); err != nil {
		return nil, err
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if _, err := s.activeCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}
	if err := s.checkDistrict(ctx, in.DistrictID); err != nil {
		return nil, err
	}

	blocks := in.Blocks
	if blocks == nil {
		blocks = models.Blocks{}
	}

	batch := s.uploader.NewBatch()
	defer func() {
		if err != nil {
			batch.Rollback(context.WithoutCancel(ctx))
		}
	}()

	var cover *string
	if in.CoverImage != nil {
		url, err := batch.Upload(ctx, *in.CoverImage)
		if err != nil {
			return nil, err
		}
		cover = &url
	}
	if err := resolveImages(ctx, batch, blocks, in); err != nil {
		return nil, err
	}
	if err := blocks.Validate(); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	districtID := in.DistrictID
	if districtID != nil && *districtID == 0 {
		districtID = nil
	}
	title := strings.TrimSpace(in.Title)
	post = &models.Post{
		Title:      title,
		Slug:       slug.MakeOr(title, "post"),
		Content:    in.Content,
		CoverImage: cover,
		Status:     authz.InitialStatus(actor),
		IsActive:   true,
		Latitude:   in.Latitude,
		Longitude:  in.Longitude,
		Blocks:     blocks,
		CategoryID: in.CategoryID,
		DistrictID: districtID,
		AuthorID:   actor.ID,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	s.publish(ctx, models.EventPostCreated, post, actor)
	return s.postRepo.GetByID(ctx, post.ID)
}

// UpdatePost applies a partial update by the author or staff. A new title
// gives the post a new slug.
func (s *PostService) UpdatePost(ctx context.Context, actor *models.User, id uint, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.Require(actor, authz.EditPost, authz.Owned(post.AuthorID)); err != nil {
		return nil, err
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	if in.CategoryID != nil {
		if _, err := s.activeCategory(ctx, *in.CategoryID); err != nil {
			return nil, err
		}
		post.CategoryID = *in.CategoryID
	}
	if in.DistrictID != nil {
		if err := s.checkDistrict(ctx, in.DistrictID); err != nil {
			return nil, err
		}
		if *in.DistrictID == 0 {
			post.DistrictID = nil
		} else {
			post.DistrictID = in.DistrictID
		}
	}

	reslug := false
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title != post.Title {
			post.Title = title
			post.Slug = slug.MakeOr(title, "post")
			reslug = true
		}
	}
	if in.Content != nil {
		post.Content = in.Content
	}
	if in.CoverImage != nil {
		post.CoverImage = in.CoverImage
	}
	if in.Latitude != nil {
		post.Latitude = in.Latitude
	}
	if in.Longitude != nil {
		post.Longitude = in.Longitude
	}
	if in.IsActive != nil {
		post.IsActive = *in.IsActive
	}
	if in.Blocks != nil {
		if err := in.Blocks.Validate(); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		post.Blocks = *in.Blocks
	}

	if err := s.postRepo.Update(ctx, post, reslug); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, post.ID)
}

func (s *PostService) DeletePost(ctx context.Context, actor *models.User, id uint) error {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := authz.Require(actor, authz.DeletePost, authz.Owned(post.AuthorID)); err != nil {
		return err
	}
	if err := s.postRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, models.EventPostDeleted, post, actor)
	return nil
}

// ToggleActive flips is_active for the author or staff.
func (s *PostService) ToggleActive(ctx context.Context, actor *models.User, id uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.Require(actor, authz.TogglePostActive, authz.Owned(post.AuthorID)); err != nil {
		return nil, err
	}
	post.IsActive = !post.IsActive
	if err := s.postRepo.UpdateFields(ctx, id, map[string]interface{}{"is_active": post.IsActive}); err != nil {
		return nil, err
	}
	return post, nil
}

// ToggleFeatured flips is_featured; staff only.
func (s *PostService) ToggleFeatured(ctx context.Context, actor *models.User, id uint) (*models.Post, error) {
	if err := authz.Require(actor, authz.FeaturePost, authz.Resource{}); err != nil {
		return nil, err
	}
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	post.IsFeatured = !post.IsFeatured
	if err := s.postRepo.UpdateFields(ctx, id, map[string]interface{}{"is_featured": post.IsFeatured}); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) ApprovePost(ctx context.Context, actor *models.User, id uint) (*models.Post, error) {
	return s.transition(ctx, actor, id, models.PostApproved, models.EventPostApproved)
}

func (s *PostService) RejectPost(ctx context.Context, actor *models.User, id uint) (*models.Post, error) {
	return s.transition(ctx, actor, id, models.PostRejected, models.EventPostRejected)
}

// transition moves a post to status from any status; admin only.
func (s *PostService) transition(ctx context.Context, actor *models.User, id uint, status models.PostStatus, eventType string) (post *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "PostService.transition",
		attribute.Int64("post.id", int64(id)), attribute.String("post.status", string(status)))
	defer func() { observability.EndSpan(span, err) }()

	if err := authz.Require(actor, authz.ModeratePost, authz.Resource{}); err != nil {
		return nil, err
	}
	post, err = s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.postRepo.UpdateFields(ctx, id, map[string]interface{}{"status": status}); err != nil {
		return nil, err
	}
	post.Status = status
	observability.PostTransitions.WithLabelValues(string(status)).Inc()
	s.publish(ctx, eventType, post, actor)
	return post, nil
}

// GetPublishedPost returns an approved post. Anything else is reported as
// missing.
func (s *PostService) GetPublishedPost(ctx context.Context, id uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.Status != models.PostApproved {
		return nil, models.NewNotFoundMessage("Post not found")
	}
	return post, nil
}

func (s *PostService) GetPublishedPostBySlug(ctx context.Context, postSlug string) (*models.Post, error) {
	post, err := s.postRepo.GetBySlug(ctx, postSlug)
	if err != nil {
		return nil, err
	}
	if post.Status != models.PostApproved {
		return nil, models.NewNotFoundMessage("Post not found")
	}
	return post, nil
}

func (s *PostService) ListPosts(ctx context.Context, in ListPostsInput) ([]models.Post, error) {
	return s.postRepo.ListApproved(ctx, repository.PostFilter{
		CategoryName: in.CategoryName,
		DistrictName: in.DistrictName,
		Search:       in.Search,
		Offset:       in.Skip,
		Limit:        clampLimit(in.Limit, defaultPostListLimit),
	})
}

// AdminListPosts lists posts in any moderation state; staff only.
func (s *PostService) AdminListPosts(ctx context.Context, actor *models.User, in AdminListPostsInput) ([]models.Post, error) {
	if err := authz.Require(actor, authz.ListAllPosts, authz.Resource{}); err != nil {
		return nil, err
	}
	status := models.PostStatus(in.Status)
	if status != "" && !status.Valid() {
		return nil, models.NewValidationError("status must be one of: pending, approved, rejected")
	}
	return s.postRepo.ListAll(ctx, repository.AdminPostFilter{
		Status:     status,
		CategoryID: in.CategoryID,
		Offset:     in.Skip,
		Limit:      clampLimit(in.Limit, defaultAdminListLimit),
	})
}

// FeaturedPosts returns homepage cards for featured, approved, active posts.
func (s *PostService) FeaturedPosts(ctx context.Context, skip, limit int) ([]models.FeaturedPost, error) {
	limit = clampLimit(limit, defaultFeaturedLimit)
	if skip < 0 {
		skip = 0
	}

	var out []models.FeaturedPost
	err := cache.Aside(ctx, cache.FeaturedKey(skip, limit), &out, cache.ListTTL, func() error {
		posts, err := s.postRepo.ListFeatured(ctx, skip, limit)
		if err != nil {
			return err
		}
		out = make([]models.FeaturedPost, 0, len(posts))
		for _, p := range posts {
			card := models.FeaturedPost{
				ID:         p.ID,
				Title:      p.Title,
				CoverImage: p.CoverImage,
				Summary:    p.Blocks.Summary(featuredSummaryLength),
				Slug:       p.Slug,
			}
			if p.Category != nil {
				card.Category = &models.CategoryName{Name: p.Category.Name}
			}
			out = append(out, card)
		}
		return nil
	})
	return out, err
}

// MapPosts returns markers for approved, active posts with both coordinates.
func (s *PostService) MapPosts(ctx context.Context) ([]models.MapPost, error) {
	var out []models.MapPost
	err := cache.Aside(ctx, cache.MapPostsKey, &out, cache.ListTTL, func() error {
		posts, err := s.postRepo.ListWithLocation(ctx)
		if err != nil {
			return err
		}
		out = make([]models.MapPost, 0, len(posts))
		for _, p := range posts {
			if !p.HasLocation() {
				continue
			}
			marker := models.MapPost{
				ID:         p.ID,
				Title:      p.Title,
				Content:    p.Content,
				CoverImage: p.CoverImage,
				Latitude:   *p.Latitude,
				Longitude:  *p.Longitude,
				CategoryID: p.CategoryID,
			}
			if p.Category != nil {
				marker.CategoryName = p.Category.Name
				color := p.Category.Color
				marker.CategoryColor = &color
			}
			out = append(out, marker)
		}
		return nil
	})
	return out, err
}
