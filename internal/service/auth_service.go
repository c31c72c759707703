package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"istancool/internal/auth"
	"istancool/internal/cache"
	"istancool/internal/middleware"
	"istancool/internal/models"
	"istancool/internal/repository"
	"istancool/internal/validation"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// ResetMailer delivers password reset tokens to their owner.
type ResetMailer interface {
	SendReset(ctx context.Context, user *models.User, token string, ttl time.Duration) error
}

// LogMailer writes reset tokens to the log. It stands in for a real mailer.
type LogMailer struct{}

func (LogMailer) SendReset(ctx context.Context, user *models.User, token string, ttl time.Duration) error {
	middleware.Logger.InfoContext(ctx, "password reset requested",
		"user_id", user.ID, "email", user.Email, "token", token, "expires_in", ttl.String())
	return nil
}

type AuthService struct {
	userRepo repository.UserRepository
	tokens   *auth.Tokens
	resets   resetStore
	mailer   ResetMailer
	cost     int
}

type RegisterInput struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"notblank,max=100"`
	LastName  string `json:"last_name" validate:"notblank,max=100"`
	Password  string `json:"password" validate:"required,min=6,max=72"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ResetPasswordInput struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6,max=72"`
}

// TokenResponse is the login payload.
type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        *models.User `json:"user"`
}

// NewAuthService wires the auth flows. rdb may be nil, in which case reset
// tokens are tracked in process memory.
func NewAuthService(userRepo repository.UserRepository, tokens *auth.Tokens, rdb *redis.Client, mailer ResetMailer) *AuthService {
	if mailer == nil {
		mailer = LogMailer{}
	}
	var resets resetStore = newMemoryResets()
	if rdb != nil {
		resets = redisResets{rdb: rdb}
	}
	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
		resets:   resets,
		mailer:   mailer,
		cost:     bcrypt.DefaultCost,
	}
}

func (s *AuthService) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return string(h), nil
}

// Register creates an active account with role user.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewValidationError("Email already registered")
	}

	hashed, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:          models.NormalizeEmail(in.Email),
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		HashedPassword: hashed,
		Role:           models.RoleUser,
		IsActive:       true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login checks credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*TokenResponse, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(in.Password)) != nil {
		return nil, models.NewUnauthorizedError("Incorrect email or password")
	}
	if !user.IsActive {
		return nil, models.NewValidationError("Inactive user")
	}

	token, err := s.tokens.IssueAccess(user.Email)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &TokenResponse{AccessToken: token, TokenType: "bearer", User: user}, nil
}

// Authenticate resolves a bearer token to its active user.
func (s *AuthService) Authenticate(ctx context.Context, bearer string) (*models.User, error) {
	claims, err := s.tokens.Parse(bearer, auth.PurposeAccess)
	if err != nil {
		return nil, models.NewUnauthorizedError("Could not validate credentials")
	}
	user, err := s.userRepo.GetByEmail(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthorizedError("Could not validate credentials")
	}
	if !user.IsActive {
		return nil, models.NewValidationError("Inactive user")
	}
	return user, nil
}

// ForgotPassword issues a single-use reset token and hands it to the mailer.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	if err := validation.Var("email", email, "required,email"); err != nil {
		return err
	}
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return models.NewNotFoundMessage("User not found")
	}

	token, jti, err := s.tokens.IssueReset(user.Email)
	if err != nil {
		return models.NewInternalError(err)
	}
	if err := s.resets.Put(ctx, jti, s.tokens.ResetTTL()); err != nil {
		return models.NewInternalError(err)
	}
	if err := s.mailer.SendReset(ctx, user, token, s.tokens.ResetTTL()); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ResetPassword consumes a reset token and replaces the password.
func (s *AuthService) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	if err := validation.Struct(in); err != nil {
		return err
	}

	claims, err := s.tokens.Parse(in.Token, auth.PurposeReset)
	if err != nil {
		return models.NewValidationError("Invalid or expired reset token")
	}
	used, err := s.resets.Consume(ctx, claims.ID)
	if err != nil {
		return models.NewInternalError(err)
	}
	if !used {
		return models.NewValidationError("Invalid or expired reset token")
	}

	user, err := s.userRepo.GetByEmail(ctx, claims.Subject)
	if err != nil {
		return err
	}
	if user == nil {
		return models.NewNotFoundMessage("User not found")
	}
	hashed, err := s.hash(in.NewPassword)
	if err != nil {
		return err
	}
	user.HashedPassword = hashed
	return s.userRepo.Update(ctx, user)
}

// resetStore remembers outstanding reset token ids.
type resetStore interface {
	Put(ctx context.Context, jti string, ttl time.Duration) error
	// Consume reports whether jti was outstanding and removes it.
	Consume(ctx context.Context, jti string) (bool, error)
}

type redisResets struct {
	rdb *redis.Client
}

func (r redisResets) Put(ctx context.Context, jti string, ttl time.Duration) error {
	return r.rdb.Set(ctx, cache.ResetKey(jti), "1", ttl).Err()
}

func (r redisResets) Consume(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	_, err := r.rdb.GetDel(ctx, cache.ResetKey(jti)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

type memoryResets struct {
	mu      sync.Mutex
	pending map[string]time.Time
}

func newMemoryResets() *memoryResets {
	return &memoryResets{pending: make(map[string]time.Time)}
}

func (m *memoryResets) Put(_ context.Context, jti string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for k, exp := range m.pending {
		if now.After(exp) {
			delete(m.pending, k)
		}
	}
	m.pending[jti] = now.Add(ttl)
	return nil
}

func (m *memoryResets) Consume(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.pending[jti]
	if !ok {
		return false, nil
	}
	delete(m.pending, jti)
	return time.Now().Before(exp), nil
}
