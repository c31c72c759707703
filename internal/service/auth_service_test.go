package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"istancool/internal/auth"
	"istancool/internal/config"
	"istancool/internal/models"
	"istancool/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type captureMailer struct {
	token string
	to    string
}

func (m *captureMailer) SendReset(_ context.Context, user *models.User, token string, _ time.Duration) error {
	m.to = user.Email
	m.token = token
	return nil
}

func testTokens() *auth.Tokens {
	return auth.NewTokens(&config.Config{
		JWTSecret:                "service-test-secret-long-enough-000",
		JWTIssuer:                "istancool-api",
		JWTAudience:              "istancool-app",
		AccessTokenExpireMinutes: 30,
		ResetTokenExpireMinutes:  15,
	})
}

func newAuthService(t *testing.T, rdb *redis.Client) (*AuthService, repos, *captureMailer) {
	t.Helper()
	r := newRepos(t)
	mailer := &captureMailer{}
	svc := NewAuthService(r.users, testTokens(), rdb, mailer)
	svc.cost = bcrypt.MinCost
	return svc, r, mailer
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	svc, _, _ := newAuthService(t, nil)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{
		Email: "Ayse@Example.com", FirstName: "Ayşe", LastName: "Yılmaz", Password: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, "ayse@example.com", user.Email)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.True(t, user.IsActive)

	_, err = svc.Register(ctx, RegisterInput{
		Email: "ayse@example.com", FirstName: "A", LastName: "B", Password: "secret123",
	})
	assertCode(t, err, models.CodeValidation)
	assert.Contains(t, err.Error(), "Email already registered")

	resp, err := svc.Login(ctx, LoginInput{Email: "ayse@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, user.ID, resp.User.ID)

	me, err := svc.Authenticate(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, me.ID)

	_, err = svc.Login(ctx, LoginInput{Email: "ayse@example.com", Password: "wrong-password"})
	assertCode(t, err, models.CodeUnauthorized)
	_, err = svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "secret123"})
	assertCode(t, err, models.CodeUnauthorized)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	svc, _, _ := newAuthService(t, nil)

	_, err := svc.Register(context.Background(), RegisterInput{Email: "not-an-email", FirstName: "A", LastName: "B", Password: "secret123"})
	assertCode(t, err, models.CodeValidation)

	_, err = svc.Register(context.Background(), RegisterInput{Email: "a@example.com", FirstName: "A", LastName: "B", Password: "123"})
	assertCode(t, err, models.CodeValidation)
}

func TestAuthService_AuthenticateInactiveUser(t *testing.T) {
	svc, r, _ := newAuthService(t, nil)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Email: "off@example.com", FirstName: "A", LastName: "B", Password: "secret123"})
	require.NoError(t, err)
	token, err := svc.tokens.IssueAccess(user.Email)
	require.NoError(t, err)

	require.NoError(t, r.db.Model(&models.User{}).Where("id = ?", user.ID).Update("is_active", false).Error)

	_, err = svc.Authenticate(ctx, token)
	assertCode(t, err, models.CodeValidation)
	assert.Equal(t, "Inactive user", err.Error())

	_, err = svc.Authenticate(ctx, "garbage")
	assertCode(t, err, models.CodeUnauthorized)

	ghost, err := svc.tokens.IssueAccess("ghost@example.com")
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, ghost)
	assertCode(t, err, models.CodeUnauthorized)
}

func TestAuthService_PasswordReset(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	for name, client := range map[string]*redis.Client{"memory": nil, "redis": rdb} {
		t.Run(name, func(t *testing.T) {
			svc, _, mailer := newAuthService(t, client)
			ctx := context.Background()

			_, err := svc.Register(ctx, RegisterInput{Email: "reset@example.com", FirstName: "A", LastName: "B", Password: "oldpass1"})
			require.NoError(t, err)

			assertCode(t, svc.ForgotPassword(ctx, "missing@example.com"), models.CodeNotFound)

			require.NoError(t, svc.ForgotPassword(ctx, "reset@example.com"))
			require.NotEmpty(t, mailer.token)
			assert.Equal(t, "reset@example.com", mailer.to)

			require.NoError(t, svc.ResetPassword(ctx, ResetPasswordInput{Token: mailer.token, NewPassword: "newpass1"}))

			_, err = svc.Login(ctx, LoginInput{Email: "reset@example.com", Password: "oldpass1"})
			assertCode(t, err, models.CodeUnauthorized)
			_, err = svc.Login(ctx, LoginInput{Email: "reset@example.com", Password: "newpass1"})
			require.NoError(t, err)

			err = svc.ResetPassword(ctx, ResetPasswordInput{Token: mailer.token, NewPassword: "another1"})
			assertCode(t, err, models.CodeValidation)
		})
	}

	for _, k := range mr.Keys() {
		assert.False(t, strings.HasPrefix(k, "reset:"), "consumed reset marker %s left behind", k)
	}
}

func TestAuthService_ResetRejectsAccessToken(t *testing.T) {
	svc, _, _ := newAuthService(t, nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "x@example.com", FirstName: "A", LastName: "B", Password: "secret123"})
	require.NoError(t, err)
	access, err := svc.tokens.IssueAccess("x@example.com")
	require.NoError(t, err)

	err = svc.ResetPassword(ctx, ResetPasswordInput{Token: access, NewPassword: "newpass1"})
	assertCode(t, err, models.CodeValidation)
}

func TestUserService_ProfileAndAdmin(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	svc := NewUserService(r.users)

	u1 := testutil.CreateUser(t, r.db, "one@example.com", models.RoleUser)
	testutil.CreateUser(t, r.db, "two@example.com", models.RoleUser)

	_, err := svc.UpdateProfile(ctx, u1, UpdateProfileInput{Email: ptr("two@example.com")})
	assertCode(t, err, models.CodeValidation)

	updated, err := svc.UpdateProfile(ctx, u1, UpdateProfileInput{FirstName: ptr("Mehmet"), Email: ptr("New@Example.com")})
	require.NoError(t, err)
	assert.Equal(t, "Mehmet", updated.FirstName)
	assert.Equal(t, "new@example.com", updated.Email)

	users, err := svc.ListUsers(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	count, err := svc.CountUsers(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	require.NoError(t, svc.DeleteUser(ctx, u1.ID))
	assertCode(t, svc.DeleteUser(ctx, u1.ID), models.CodeNotFound)
}
