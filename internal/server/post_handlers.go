package server

import (
	"io"
	"mime/multipart"
	"regexp"
	"strconv"
	"strings"

	"istancool/internal/media"
	"istancool/internal/models"
	"istancool/internal/service"

	"github.com/gofiber/fiber/v2"
)

var (
	blockImageField = regexp.MustCompile(`^block_image_(\d+)$`)
	gridImageField  = regexp.MustCompile(`^grid_(\d+)_block_image_(\d+)$`)
)

// ListPosts handles GET /posts
// @Summary List published posts
// @Description Approved, active posts, newest first
// @Tags posts
// @Produce json
// @Param category_name query string false "Category name"
// @Param district_name query string false "District name"
// @Param search query string false "Title or content substring"
// @Param skip query int false "Offset"
// @Param limit query int false "Page size (default 100)"
// @Success 200 {array} models.Post
// @Router /posts [get]
func (s *Server) ListPosts(c *fiber.Ctx) error {
	page := parsePagination(c)
	posts, err := s.postService.ListPosts(c.UserContext(), service.ListPostsInput{
		CategoryName: c.Query("category_name"),
		DistrictName: c.Query("district_name"),
		Search:       c.Query("search"),
		Skip:         page.Skip,
		Limit:        page.Limit,
	})
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(posts)
}

// FeaturedPosts handles GET /posts/featured
// @Summary Featured posts
// @Tags posts
// @Produce json
// @Param skip query int false "Offset"
// @Param limit query int false "Page size (default 10)"
// @Success 200 {array} models.FeaturedPost
// @Router /posts/featured [get]
func (s *Server) FeaturedPosts(c *fiber.Ctx) error {
	page := parsePagination(c)
	posts, err := s.postService.FeaturedPosts(c.UserContext(), page.Skip, page.Limit)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(posts)
}

// MapPosts handles GET /posts/map-posts
// @Summary Posts with coordinates
// @Tags posts
// @Produce json
// @Success 200 {array} models.MapPost
// @Router /posts/map-posts [get]
func (s *Server) MapPosts(c *fiber.Ctx) error {
	posts, err := s.postService.MapPosts(c.UserContext())
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(posts)
}

// GetPost handles GET /posts/:id
// @Summary Get a published post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.postService.GetPublishedPost(c.UserContext(), id)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(post)
}

// GetPostBySlug handles GET /posts/slug/:slug
// @Summary Get a published post by slug
// @Tags posts
// @Produce json
// @Param slug path string true "Post slug"
// @Success 200 {object} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/slug/{slug} [get]
func (s *Server) GetPostBySlug(c *fiber.Ctx) error {
	post, err := s.postService.GetPublishedPostBySlug(c.UserContext(), c.Params("slug"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(post)
}

// AdminListPosts handles GET /posts/admin/list
// @Summary List posts in any moderation state
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, approved or rejected"
// @Param category_id query int false "Category ID"
// @Param skip query int false "Offset"
// @Param limit query int false "Page size (default 10)"
// @Success 200 {array} models.Post
// @Failure 403 {object} models.ErrorResponse
// @Router /posts/admin/list [get]
func (s *Server) AdminListPosts(c *fiber.Ctx) error {
	page := parsePagination(c)
	categoryID := c.QueryInt("category_id", 0)
	if categoryID < 0 {
		categoryID = 0
	}
	posts, err := s.postService.AdminListPosts(c.UserContext(), currentUser(c), service.AdminListPostsInput{
		Status:     c.Query("status"),
		CategoryID: uint(categoryID),
		Skip:       page.Skip,
		Limit:      page.Limit,
	})
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(posts)
}

// CreatePost handles POST /posts
// @Summary Create a post
// @Description Multipart form. Images for image blocks go in block_image_{i},
// @Description images for grid cells in grid_{i}_block_image_{j}.
// @Tags posts
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param title formData string true "Title"
// @Param category_id formData int true "Category ID"
// @Param content formData string false "Plain content"
// @Param district_id formData int false "District ID"
// @Param latitude formData string false "Latitude"
// @Param longitude formData string false "Longitude"
// @Param blocks formData string false "JSON array of blocks"
// @Param cover_image formData file false "Cover image"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var in service.CreatePostInput
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid multipart form"))
		}
		parsed, err := postInputFromForm(form)
		if err != nil {
			return respondErr(c, err)
		}
		in = *parsed
	} else if err := bindJSON(c, &in); err != nil {
		return nil
	}

	post, err := s.postService.CreatePost(c.UserContext(), currentUser(c), in)
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// postInputFromForm maps the create-post multipart form onto the service input.
func postInputFromForm(form *multipart.Form) (*service.CreatePostInput, error) {
	value := func(key string) string {
		if v := form.Value[key]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}
	optional := func(key string) *string {
		if v := value(key); v != "" {
			return &v
		}
		return nil
	}

	in := &service.CreatePostInput{
		Title:     value("title"),
		Content:   optional("content"),
		Latitude:  optional("latitude"),
		Longitude: optional("longitude"),
	}

	categoryID, err := strconv.ParseUint(value("category_id"), 10, 64)
	if err != nil {
		return nil, models.NewValidationError("category_id must be an integer")
	}
	in.CategoryID = uint(categoryID)

	if raw := value("district_id"); raw != "" {
		districtID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, models.NewValidationError("district_id must be an integer")
		}
		if districtID != 0 {
			id := uint(districtID)
			in.DistrictID = &id
		}
	}

	blocks, err := models.ParseBlocks(value("blocks"))
	if err != nil {
		return nil, models.NewValidationError("blocks must be a JSON array")
	}
	in.Blocks = blocks

	for field, headers := range form.File {
		if len(headers) == 0 {
			continue
		}
		f, err := readFormFile(headers[0])
		if err != nil {
			return nil, err
		}
		switch {
		case field == "cover_image":
			in.CoverImage = &f
		case blockImageField.MatchString(field):
			m := blockImageField.FindStringSubmatch(field)
			i, _ := strconv.Atoi(m[1])
			if in.BlockImages == nil {
				in.BlockImages = make(map[int]media.File)
			}
			in.BlockImages[i] = f
		case gridImageField.MatchString(field):
			m := gridImageField.FindStringSubmatch(field)
			i, _ := strconv.Atoi(m[1])
			j, _ := strconv.Atoi(m[2])
			if in.GridImages == nil {
				in.GridImages = make(map[service.GridCell]media.File)
			}
			in.GridImages[service.GridCell{Block: i, Cell: j}] = f
		}
	}
	return in, nil
}

func readFormFile(h *multipart.FileHeader) (media.File, error) {
	src, err := h.Open()
	if err != nil {
		return media.File{}, models.NewValidationError("Unable to read uploaded file")
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return media.File{}, models.NewValidationError("Unable to read uploaded file")
	}
	return media.File{
		Filename:    h.Filename,
		ContentType: h.Header.Get(fiber.HeaderContentType),
		Content:     content,
	}, nil
}

// UpdatePost handles PUT /posts/:id
// @Summary Update a post
// @Description Author or staff. A new title gives the post a new slug.
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body service.UpdatePostInput true "Changed fields"
// @Success 200 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req service.UpdatePostInput
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	post, err := s.postService.UpdatePost(c.UserContext(), currentUser(c), id, req)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /posts/:id
// @Summary Delete a post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.DeletePost(c.UserContext(), currentUser(c), id); err != nil {
		return respondErr(c, err)
	}
	return message(c, "Post deleted successfully")
}

// TogglePostStatus handles PATCH /posts/:id/toggle-status
// @Summary Toggle post is_active
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} object{message=string}
// @Router /posts/{id}/toggle-status [patch]
func (s *Server) TogglePostStatus(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.postService.ToggleActive(c.UserContext(), currentUser(c), id)
	if err != nil {
		return respondErr(c, err)
	}
	return message(c, "Post status changed to "+onOff(post.IsActive, "active", "inactive"))
}

// ApprovePost handles PATCH /posts/:id/approve
// @Summary Approve a post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Router /posts/{id}/approve [patch]
func (s *Server) ApprovePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if _, err := s.postService.ApprovePost(c.UserContext(), currentUser(c), id); err != nil {
		return respondErr(c, err)
	}
	return message(c, "Post approved successfully")
}

// RejectPost handles PATCH /posts/:id/reject
// @Summary Reject a post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Router /posts/{id}/reject [patch]
func (s *Server) RejectPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if _, err := s.postService.RejectPost(c.UserContext(), currentUser(c), id); err != nil {
		return respondErr(c, err)
	}
	return message(c, "Post rejected successfully")
}

// TogglePostFeatured handles PATCH /posts/:id/toggle-featured
// @Summary Toggle post is_featured
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Router /posts/{id}/toggle-featured [patch]
func (s *Server) TogglePostFeatured(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.postService.ToggleFeatured(c.UserContext(), currentUser(c), id)
	if err != nil {
		return respondErr(c, err)
	}
	return message(c, "Post featured status changed to "+onOff(post.IsFeatured, "featured", "not featured"))
}
