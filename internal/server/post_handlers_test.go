package server

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"istancool/internal/models"
	"istancool/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	admin := testutil.CreateUser(t, ts.db, "admin@example.com", models.RoleAdmin)
	author := testutil.CreateUser(t, ts.db, "author@example.com", models.RoleUser)
	other := testutil.CreateUser(t, ts.db, "other@example.com", models.RoleUser)
	gezi := testutil.CreateCategory(t, ts.db, "Gezi", "gezi", true)
	district := testutil.CreateDistrict(t, ts.db, "Beşiktaş", "besiktas", models.RegionEurope)

	png := testutil.TinyPNG(t, 8, 8)
	form, contentType := multipartBody(t, map[string]string{
		"title":       "Beşiktaş'ta Yeni Park",
		"category_id": itoa(gezi.ID),
		"district_id": itoa(district.ID),
		"latitude":    "41.0422",
		"longitude":   "29.0083",
		"blocks":      `[{"type":"text","content":"Sahil boyunca yürüyüş."},{"type":"image"},{"type":"grid","blocks":[{"type":"image","content":"x"},{"type":"text","content":"yan"}]}]`,
	}, map[string][]byte{
		"cover_image":          png,
		"block_image_1":        png,
		"grid_2_block_image_0": png,
	})

	req := httptest.NewRequest(http.MethodPost, "/posts", form)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+ts.token(t, author))
	resp, err := ts.App().Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	post := decode[models.Post](t, resp)

	assert.Equal(t, "besiktas-ta-yeni-park", post.Slug)
	assert.Equal(t, models.PostPending, post.Status)
	require.NotNil(t, post.CoverImage)
	assert.True(t, strings.HasPrefix(*post.CoverImage, "https://cdn.test/"))
	require.Len(t, post.Blocks, 3)
	assert.NotEmpty(t, post.Blocks[1].Src)
	assert.NotEmpty(t, post.Blocks[2].Blocks[0].Src)
	assert.Empty(t, post.Blocks[2].Blocks[0].Content)
	assert.Equal(t, 3, ts.store.Len())

	// Pending posts are invisible to the public.
	resp = ts.do(t, http.MethodGet, "/posts/"+itoa(post.ID), nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = ts.do(t, http.MethodGet, "/posts", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]models.Post](t, resp))
	resp = ts.do(t, http.MethodGet, "/posts/map-posts", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]models.MapPost](t, resp))

	resp = ts.do(t, http.MethodPatch, "/posts/"+itoa(post.ID)+"/approve", nil, ts.token(t, author))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/posts/admin/list?status=pending", nil, ts.token(t, admin))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Post](t, resp), 1)

	resp = ts.do(t, http.MethodPatch, "/posts/"+itoa(post.ID)+"/approve", nil, ts.token(t, admin))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Post approved successfully", decode[map[string]string](t, resp)["message"])

	resp = ts.do(t, http.MethodGet, "/posts/slug/besiktas-ta-yeni-park", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, post.ID, decode[models.Post](t, resp).ID)

	resp = ts.do(t, http.MethodGet, "/posts?district_name="+url.QueryEscape("Beşiktaş"), nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Post](t, resp), 1)

	resp = ts.do(t, http.MethodGet, "/posts/map-posts", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	markers := decode[[]models.MapPost](t, resp)
	require.Len(t, markers, 1)
	assert.Equal(t, "Gezi", markers[0].CategoryName)

	resp = ts.do(t, http.MethodPut, "/posts/"+itoa(post.ID), map[string]any{"title": "Başka"}, ts.token(t, other))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = ts.do(t, http.MethodPut, "/posts/"+itoa(post.ID), map[string]any{"title": "Yeni Park Açıldı"}, ts.token(t, author))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "yeni-park-acildi", decode[models.Post](t, resp).Slug)

	resp = ts.do(t, http.MethodPatch, "/posts/"+itoa(post.ID)+"/toggle-featured", nil, ts.token(t, author))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = ts.do(t, http.MethodPatch, "/posts/"+itoa(post.ID)+"/toggle-featured", nil, ts.token(t, admin))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Post featured status changed to featured", decode[map[string]string](t, resp)["message"])

	resp = ts.do(t, http.MethodGet, "/posts/featured", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	featured := decode[[]models.FeaturedPost](t, resp)
	require.Len(t, featured, 1)
	assert.Equal(t, "Sahil boyunca yürüyüş. ", featured[0].Summary)

	resp = ts.do(t, http.MethodPatch, "/posts/"+itoa(post.ID)+"/toggle-status", nil, ts.token(t, author))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Post status changed to inactive", decode[map[string]string](t, resp)["message"])

	resp = ts.do(t, http.MethodDelete, "/posts/"+itoa(post.ID), nil, ts.token(t, author))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = ts.do(t, http.MethodDelete, "/posts/"+itoa(post.ID), nil, ts.token(t, author))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreatePostRejectsInactiveCategory(t *testing.T) {
	ts := newTestServer(t)
	author := testutil.CreateUser(t, ts.db, "author@example.com", models.RoleUser)
	archive := testutil.CreateCategory(t, ts.db, "Arşiv", "arsiv", false)

	form, contentType := multipartBody(t, map[string]string{
		"title":       "Eski Yazı",
		"category_id": itoa(archive.ID),
	}, nil)
	req := httptest.NewRequest(http.MethodPost, "/posts", form)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+ts.token(t, author))
	resp, err := ts.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Category is not active", decode[models.ErrorResponse](t, resp).Error)

	form, contentType = multipartBody(t, map[string]string{"title": "x", "category_id": "abc"}, nil)
	req = httptest.NewRequest(http.MethodPost, "/posts", form)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+ts.token(t, author))
	resp, err = ts.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
