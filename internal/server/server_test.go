package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"istancool/internal/auth"
	"istancool/internal/config"
	"istancool/internal/media"
	"istancool/internal/models"
	"istancool/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testServer struct {
	*Server
	db     *gorm.DB
	store  *media.MemoryStore
	tokens *auth.Tokens
}

func testConfig() *config.Config {
	return &config.Config{
		Env:                      "test",
		Port:                     "0",
		JWTSecret:                "handler-test-secret-long-enough-0000",
		JWTIssuer:                "istancool-api",
		JWTAudience:              "istancool-app",
		AccessTokenExpireMinutes: 30,
		ResetTokenExpireMinutes:  15,
		MediaFolder:              "blog_images",
		ImageMaxUploadSizeMB:     1,
		RateLimitGlobalPerMin:    1000,
		RateLimitAuthPerMinute:   1000,
	}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	cfg := testConfig()
	db := testutil.NewSQLiteDB(t)
	store := media.NewMemoryStore("https://cdn.test")

	s, err := NewServerWithDeps(cfg, Deps{DB: db, Store: store})
	require.NoError(t, err)
	t.Cleanup(func() { s.shutdownFn() })

	return &testServer{Server: s, db: db, store: store, tokens: auth.NewTokens(cfg)}
}

func (ts *testServer) token(t *testing.T, u *models.User) string {
	t.Helper()
	tok, err := ts.tokens.IssueAccess(u.Email)
	require.NoError(t, err)
	return tok
}

// do sends a JSON request (body may be nil) and returns the response.
func (ts *testServer) do(t *testing.T, method, path string, body any, token string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.App().Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/health/live", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	live := decode[map[string]any](t, resp)
	assert.Equal(t, "up", live["status"])

	resp = ts.do(t, http.MethodGet, "/health/ready", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	ready := decode[map[string]any](t, resp)
	checks := ready["checks"].(map[string]any)
	assert.Equal(t, "healthy", checks["database"])
	assert.Equal(t, "unavailable", checks["redis"])
}

func TestInvalidIDIsBadRequest(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/categories/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[models.ErrorResponse](t, resp)
	assert.Equal(t, "Invalid ID", body.Error)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/posts", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := ts.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestModerationFeedRequiresUpgrade(t *testing.T) {
	ts := newTestServer(t)
	editor := testutil.CreateUser(t, ts.db, "editor@example.com", models.RoleEditor)
	user := testutil.CreateUser(t, ts.db, "user@example.com", models.RoleUser)

	resp := ts.do(t, http.MethodGet, "/ws/moderation", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/ws/moderation?token="+ts.token(t, user), nil, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/ws/moderation?token="+ts.token(t, editor), nil, "")
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

// multipartBody builds a form with the given text fields and PNG files.
func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for k, data := range files {
		part, err := w.CreateFormFile(k, k+".png")
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
