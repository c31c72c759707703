package server

import (
	"net/http"
	"testing"

	"istancool/internal/models"
	"istancool/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/auth/register", map[string]string{
		"email": "Zeynep@Example.com", "first_name": "Zeynep", "last_name": "Kaya", "password": "secret123",
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	user := decode[models.User](t, resp)
	assert.Equal(t, "zeynep@example.com", user.Email)
	assert.Equal(t, models.RoleUser, user.Role)

	resp = ts.do(t, http.MethodPost, "/auth/register", map[string]string{
		"email": "zeynep@example.com", "first_name": "Z", "last_name": "K", "password": "secret123",
	}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Email already registered", decode[models.ErrorResponse](t, resp).Error)

	resp = ts.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email": "zeynep@example.com", "password": "wrong",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email": "zeynep@example.com", "password": "secret123",
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	login := decode[map[string]any](t, resp)
	assert.Equal(t, "bearer", login["token_type"])
	token, _ := login["access_token"].(string)
	require.NotEmpty(t, token)

	resp = ts.do(t, http.MethodGet, "/auth/me", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, user.ID, decode[models.User](t, resp).ID)

	resp = ts.do(t, http.MethodPut, "/auth/me", map[string]string{"first_name": "Zey"}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Zey", decode[models.User](t, resp).FirstName)
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/auth/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))

	resp = ts.do(t, http.MethodGet, "/auth/me", nil, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// ?token= is only honoured on websocket paths.
	u := testutil.CreateUser(t, ts.db, "q@example.com", models.RoleUser)
	resp = ts.do(t, http.MethodGet, "/auth/me?token="+ts.token(t, u), nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	require.NoError(t, ts.db.Model(&models.User{}).Where("id = ?", u.ID).Update("is_active", false).Error)
	resp = ts.do(t, http.MethodGet, "/auth/me", nil, ts.token(t, u))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Inactive user", decode[models.ErrorResponse](t, resp).Error)
}

func TestForgotAndResetPassword(t *testing.T) {
	ts := newTestServer(t)
	u := testutil.CreateUser(t, ts.db, "forgot@example.com", models.RoleUser)

	resp := ts.do(t, http.MethodPost, "/auth/forgot-password", map[string]string{"email": "nobody@example.com"}, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/auth/forgot-password?email="+u.Email, nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/auth/reset-password", map[string]string{
		"token": "bogus", "new_password": "newpass1",
	}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUserAdministration(t *testing.T) {
	ts := newTestServer(t)
	admin := testutil.CreateUser(t, ts.db, "admin@example.com", models.RoleAdmin)
	editor := testutil.CreateUser(t, ts.db, "editor@example.com", models.RoleEditor)
	victim := testutil.CreateUser(t, ts.db, "victim@example.com", models.RoleUser)

	resp := ts.do(t, http.MethodGet, "/users", nil, ts.token(t, editor))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Not enough permissions", decode[models.ErrorResponse](t, resp).Error)

	resp = ts.do(t, http.MethodGet, "/users?limit=2", nil, ts.token(t, admin))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.User](t, resp), 2)

	resp = ts.do(t, http.MethodGet, "/users/count", nil, ts.token(t, admin))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 3, decode[map[string]any](t, resp)["count"])

	resp = ts.do(t, http.MethodDelete, "/users/"+itoa(victim.ID), nil, ts.token(t, admin))
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.do(t, http.MethodDelete, "/users/"+itoa(victim.ID), nil, ts.token(t, admin))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
