package service

import (
	"context"
	"strings"
	"testing"

	"istancool/internal/media"
	"istancool/internal/models"
	"istancool/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type postFixture struct {
	repos
	svc      *PostService
	store    *media.MemoryStore
	events   *eventRecorder
	author   *models.User
	other    *models.User
	editor   *models.User
	admin    *models.User
	active   *models.Category
	inactive *models.Category
	district *models.District
}

func newPostFixture(t *testing.T) *postFixture {
	t.Helper()
	r := newRepos(t)
	f := &postFixture{
		repos:  r,
		store:  media.NewMemoryStore("https://cdn.test"),
		events: &eventRecorder{},
	}
	f.svc = NewPostService(r.posts, r.categories, r.districts, media.NewUploader(f.store, "blog_images", 1), f.events)
	f.author = testutil.CreateUser(t, r.db, "author@example.com", models.RoleUser)
	f.other = testutil.CreateUser(t, r.db, "other@example.com", models.RoleUser)
	f.editor = testutil.CreateUser(t, r.db, "editor@example.com", models.RoleEditor)
	f.admin = testutil.CreateUser(t, r.db, "admin@example.com", models.RoleAdmin)
	f.active = testutil.CreateCategory(t, r.db, "Gezi", "gezi", true)
	f.inactive = testutil.CreateCategory(t, r.db, "Arşiv", "arsiv", false)
	f.district = testutil.CreateDistrict(t, r.db, "Üsküdar", "uskudar", models.RegionAsia)
	return f
}

func (f *postFixture) create(t *testing.T, actor *models.User, title string) *models.Post {
	t.Helper()
	post, err := f.svc.CreatePost(context.Background(), actor, CreatePostInput{
		Title:      title,
		CategoryID: f.active.ID,
		Blocks:     models.Blocks{{Type: models.BlockText, Content: "Boğaz manzarası"}},
	})
	require.NoError(t, err)
	return post
}

func TestPostService_InitialStatus(t *testing.T) {
	f := newPostFixture(t)

	pending := f.create(t, f.author, "Kuzguncuk Sokakları")
	assert.Equal(t, models.PostPending, pending.Status)
	assert.Equal(t, "kuzguncuk-sokaklari", pending.Slug)
	assert.True(t, pending.IsActive)
	require.NotNil(t, pending.Category)
	assert.Equal(t, "Gezi", pending.Category.Name)

	approved := f.create(t, f.admin, "Kuzguncuk Sokakları")
	assert.Equal(t, models.PostApproved, approved.Status)
	assert.Equal(t, "kuzguncuk-sokaklari-1", approved.Slug)

	assert.Equal(t, []string{models.EventPostCreated, models.EventPostCreated}, f.events.types())
}

func TestPostService_CreateChecksReferences(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreatePost(ctx, f.author, CreatePostInput{Title: "X", CategoryID: f.inactive.ID})
	assertCode(t, err, models.CodeValidation)

	_, err = f.svc.CreatePost(ctx, f.author, CreatePostInput{Title: "X", CategoryID: 999})
	assertCode(t, err, models.CodeNotFound)

	_, err = f.svc.CreatePost(ctx, f.author, CreatePostInput{Title: "X", CategoryID: f.active.ID, DistrictID: ptr(uint(999))})
	assertCode(t, err, models.CodeNotFound)

	_, err = f.svc.CreatePost(ctx, nil, CreatePostInput{Title: "X", CategoryID: f.active.ID})
	assertCode(t, err, models.CodeForbidden)

	_, err = f.svc.CreatePost(ctx, f.author, CreatePostInput{Title: "", CategoryID: f.active.ID})
	assertCode(t, err, models.CodeValidation)

	post, err := f.svc.CreatePost(ctx, f.author, CreatePostInput{
		Title:      "Çamlıca Tepesi",
		CategoryID: f.active.ID,
		DistrictID: ptr(f.district.ID),
		Latitude:   ptr("41.0270"),
		Longitude:  ptr("29.0690"),
	})
	require.NoError(t, err)
	require.NotNil(t, post.District)
	assert.Equal(t, "Üsküdar", post.District.Name)
	assert.NotNil(t, post.Blocks)
}

func TestPostService_CreateUploadsImages(t *testing.T) {
	f := newPostFixture(t)

	png := media.File{Filename: "a.png", ContentType: "image/png", Content: testutil.TinyPNG(t, 40, 20)}
	post, err := f.svc.CreatePost(context.Background(), f.author, CreatePostInput{
		Title:      "Galata",
		CategoryID: f.active.ID,
		Blocks: models.Blocks{
			{Type: models.BlockText, Content: "giriş"},
			{Type: models.BlockImage, Alt: "kule"},
			{Type: models.BlockGrid, Columns: 2, Blocks: []models.Block{
				{Type: models.BlockImage, Content: "placeholder"},
				{Type: models.BlockText, Content: "metin"},
			}},
		},
		CoverImage:  &png,
		BlockImages: map[int]media.File{1: png},
		GridImages:  map[GridCell]media.File{{Block: 2, Cell: 0}: png},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, f.store.Len())
	require.NotNil(t, post.CoverImage)
	assert.True(t, strings.HasPrefix(*post.CoverImage, "https://cdn.test/blog_images/"))
	assert.True(t, strings.HasPrefix(post.Blocks[1].Src, "https://cdn.test/blog_images/"))
	cell := post.Blocks[2].Blocks[0]
	assert.NotEmpty(t, cell.Src)
	assert.Empty(t, cell.Content)
	assert.Equal(t, "metin", post.Blocks[2].Blocks[1].Content)
}

func TestPostService_CreateRollsBackUploads(t *testing.T) {
	f := newPostFixture(t)

	png := media.File{Filename: "a.png", ContentType: "image/png", Content: testutil.TinyPNG(t, 10, 10)}
	_, err := f.svc.CreatePost(context.Background(), f.author, CreatePostInput{
		Title:      "Eksik Görsel",
		CategoryID: f.active.ID,
		// The image block has neither a file nor a src.
		Blocks:     models.Blocks{{Type: models.BlockImage}},
		CoverImage: &png,
	})
	assertCode(t, err, models.CodeValidation)
	assert.Equal(t, 0, f.store.Len())
	assert.Empty(t, f.events.types())

	var count int64
	require.NoError(t, f.db.Model(&models.Post{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPostService_CreateWithoutUploader(t *testing.T) {
	f := newPostFixture(t)
	svc := NewPostService(f.posts, f.categories, f.districts, nil, nil)

	png := media.File{Filename: "a.png", ContentType: "image/png", Content: testutil.TinyPNG(t, 10, 10)}
	_, err := svc.CreatePost(context.Background(), f.author, CreatePostInput{Title: "Kapak", CategoryID: f.active.ID, CoverImage: &png})
	assertCode(t, err, models.CodeValidation)

	post, err := svc.CreatePost(context.Background(), f.author, CreatePostInput{Title: "Kapaksız", CategoryID: f.active.ID})
	require.NoError(t, err)
	assert.Nil(t, post.CoverImage)
}

func TestPostService_UpdateToInactiveCategoryKeepsCategory(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()
	post := f.create(t, f.author, "Balat Renkleri")

	_, err := f.svc.UpdatePost(ctx, f.author, post.ID, UpdatePostInput{CategoryID: ptr(f.inactive.ID)})
	assertCode(t, err, models.CodeValidation)

	reloaded, err := f.posts.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, f.active.ID, reloaded.CategoryID)
}

func TestPostService_UpdateAuthorizationAndReslug(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()
	post := f.create(t, f.author, "Eski Başlık")
	f.create(t, f.author, "Yeni Başlık")

	_, err := f.svc.UpdatePost(ctx, f.other, post.ID, UpdatePostInput{Content: ptr("x")})
	assertCode(t, err, models.CodeForbidden)

	updated, err := f.svc.UpdatePost(ctx, f.editor, post.ID, UpdatePostInput{Title: ptr("Yeni Başlık"), IsActive: ptr(false)})
	require.NoError(t, err)
	assert.Equal(t, "yeni-baslik-1", updated.Slug)
	assert.False(t, updated.IsActive)
	assert.Equal(t, models.PostPending, updated.Status)

	same, err := f.svc.UpdatePost(ctx, f.author, post.ID, UpdatePostInput{Content: ptr("içerik")})
	require.NoError(t, err)
	assert.Equal(t, "yeni-baslik-1", same.Slug)

	bad := models.Blocks{{Type: "video"}}
	_, err = f.svc.UpdatePost(ctx, f.author, post.ID, UpdatePostInput{Blocks: &bad})
	assertCode(t, err, models.CodeValidation)

	_, err = f.svc.UpdatePost(ctx, f.author, 999, UpdatePostInput{})
	assertCode(t, err, models.CodeNotFound)
}

func TestPostService_Moderation(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()
	post := f.create(t, f.author, "Moda Sahili")

	for _, actor := range []*models.User{f.author, f.other, f.editor} {
		_, err := f.svc.ApprovePost(ctx, actor, post.ID)
		assertCode(t, err, models.CodeForbidden)
		_, err = f.svc.RejectPost(ctx, actor, post.ID)
		assertCode(t, err, models.CodeForbidden)
	}

	_, err := f.svc.GetPublishedPost(ctx, post.ID)
	assertCode(t, err, models.CodeNotFound)

	approved, err := f.svc.ApprovePost(ctx, f.admin, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PostApproved, approved.Status)

	visible, err := f.svc.GetPublishedPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.ID, visible.ID)
	bySlug, err := f.svc.GetPublishedPostBySlug(ctx, "moda-sahili")
	require.NoError(t, err)
	assert.Equal(t, post.ID, bySlug.ID)

	rejected, err := f.svc.RejectPost(ctx, f.admin, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PostRejected, rejected.Status)
	_, err = f.svc.GetPublishedPostBySlug(ctx, "moda-sahili")
	assertCode(t, err, models.CodeNotFound)

	// Rejected posts may be approved again.
	_, err = f.svc.ApprovePost(ctx, f.admin, post.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{
		models.EventPostCreated, models.EventPostApproved, models.EventPostRejected, models.EventPostApproved,
	}, f.events.types())
	last := f.events.events[len(f.events.events)-1]
	assert.Equal(t, f.admin.ID, last.ActorID)
	assert.Equal(t, f.author.ID, last.AuthorID)
}

func TestPostService_DoubleTogglesRestore(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()
	post := f.create(t, f.author, "Fener Kalamış")

	_, err := f.svc.ToggleActive(ctx, f.other, post.ID)
	assertCode(t, err, models.CodeForbidden)
	_, err = f.svc.ToggleFeatured(ctx, f.author, post.ID)
	assertCode(t, err, models.CodeForbidden)

	p, err := f.svc.ToggleActive(ctx, f.author, post.ID)
	require.NoError(t, err)
	assert.False(t, p.IsActive)
	p, err = f.svc.ToggleActive(ctx, f.editor, post.ID)
	require.NoError(t, err)
	assert.True(t, p.IsActive)

	p, err = f.svc.ToggleFeatured(ctx, f.editor, post.ID)
	require.NoError(t, err)
	assert.True(t, p.IsFeatured)
	p, err = f.svc.ToggleFeatured(ctx, f.admin, post.ID)
	require.NoError(t, err)
	assert.False(t, p.IsFeatured)

	reloaded, err := f.posts.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.IsActive, reloaded.IsActive)
	assert.Equal(t, post.IsFeatured, reloaded.IsFeatured)
}

func TestPostService_Delete(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()
	post := f.create(t, f.author, "Silinecek")

	assertCode(t, f.svc.DeletePost(ctx, f.other, post.ID), models.CodeForbidden)
	require.NoError(t, f.svc.DeletePost(ctx, f.author, post.ID))
	assertCode(t, f.svc.DeletePost(ctx, f.author, post.ID), models.CodeNotFound)
	assert.Contains(t, f.events.types(), models.EventPostDeleted)
}

func TestPostService_Lists(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()

	pending := f.create(t, f.author, "Bekleyen Yazı")
	approved := f.create(t, f.admin, "Onaylı Yazı")

	public, err := f.svc.ListPosts(ctx, ListPostsInput{})
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, approved.ID, public[0].ID)

	_, err = f.svc.AdminListPosts(ctx, f.author, AdminListPostsInput{})
	assertCode(t, err, models.CodeForbidden)
	_, err = f.svc.AdminListPosts(ctx, f.editor, AdminListPostsInput{Status: "draft"})
	assertCode(t, err, models.CodeValidation)

	all, err := f.svc.AdminListPosts(ctx, f.editor, AdminListPostsInput{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyPending, err := f.svc.AdminListPosts(ctx, f.admin, AdminListPostsInput{Status: "pending", CategoryID: f.active.ID})
	require.NoError(t, err)
	require.Len(t, onlyPending, 1)
	assert.Equal(t, pending.ID, onlyPending[0].ID)
}

func TestPostService_FeaturedAndMap(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()

	long := strings.Repeat("a", 120)
	post, err := f.svc.CreatePost(ctx, f.admin, CreatePostInput{
		Title:      "Öne Çıkan",
		CategoryID: f.active.ID,
		Latitude:   ptr("41.0"),
		Longitude:  ptr("29.0"),
		Blocks:     models.Blocks{{Type: models.BlockText, Content: long}},
	})
	require.NoError(t, err)
	_, err = f.svc.ToggleFeatured(ctx, f.admin, post.ID)
	require.NoError(t, err)

	pending, err := f.svc.CreatePost(ctx, f.author, CreatePostInput{
		Title: "Haritada Bekleyen", CategoryID: f.active.ID, Latitude: ptr("41.1"), Longitude: ptr("29.1"),
	})
	require.NoError(t, err)
	f.create(t, f.admin, "Konumsuz")

	featured, err := f.svc.FeaturedPosts(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, featured, 1)
	assert.Equal(t, post.Slug, featured[0].Slug)
	assert.Equal(t, strings.Repeat("a", 100)+"...", featured[0].Summary)
	require.NotNil(t, featured[0].Category)
	assert.Equal(t, "Gezi", featured[0].Category.Name)

	markers, err := f.svc.MapPosts(ctx)
	require.NoError(t, err)
	require.Len(t, markers, 1)
	assert.Equal(t, post.ID, markers[0].ID)
	for _, m := range markers {
		assert.NotEqual(t, pending.ID, m.ID)
	}
	assert.Equal(t, "Gezi", markers[0].CategoryName)
	require.NotNil(t, markers[0].CategoryColor)
	assert.Equal(t, "#e11d48", *markers[0].CategoryColor)

	// A rejected post with coordinates is not published on the map either.
	_, err = f.svc.RejectPost(ctx, f.admin, pending.ID)
	require.NoError(t, err)
	markers, err = f.svc.MapPosts(ctx)
	require.NoError(t, err)
	require.Len(t, markers, 1)
	assert.Equal(t, post.ID, markers[0].ID)
}
