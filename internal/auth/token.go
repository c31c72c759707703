// Package auth issues and verifies the HS256 tokens used by the API.
package auth

import (
	"errors"
	"fmt"
	"time"

	"istancool/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token purposes. Access tokens carry no purpose claim.
const (
	PurposeAccess = ""
	PurposeReset  = "reset"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrWrongPurpose = errors.New("token used for the wrong purpose")
)

// Claims is the verified content of a token.
type Claims struct {
	Subject   string
	ID        string
	Purpose   string
	ExpiresAt time.Time
}

// Tokens signs and verifies tokens with one shared secret.
type Tokens struct {
	secret    []byte
	issuer    string
	audience  string
	accessTTL time.Duration
	resetTTL  time.Duration
	now       func() time.Time
}

// NewTokens builds Tokens from the JWT settings of cfg.
func NewTokens(cfg *config.Config) *Tokens {
	resetTTL := time.Duration(cfg.ResetTokenExpireMinutes) * time.Minute
	if resetTTL <= 0 {
		resetTTL = 15 * time.Minute
	}
	return &Tokens{
		secret:    []byte(cfg.JWTSecret),
		issuer:    cfg.JWTIssuer,
		audience:  cfg.JWTAudience,
		accessTTL: time.Duration(cfg.AccessTokenExpireMinutes) * time.Minute,
		resetTTL:  resetTTL,
		now:       time.Now,
	}
}

// ResetTTL is how long a reset token stays usable.
func (t *Tokens) ResetTTL() time.Duration {
	return t.resetTTL
}

// IssueAccess returns a bearer token whose subject is email.
func (t *Tokens) IssueAccess(email string) (string, error) {
	token, _, err := t.issue(email, PurposeAccess, t.accessTTL)
	return token, err
}

// IssueReset returns a password reset token for email and its jti.
func (t *Tokens) IssueReset(email string) (token, jti string, err error) {
	return t.issue(email, PurposeReset, t.resetTTL)
}

func (t *Tokens) issue(subject, purpose string, ttl time.Duration) (string, string, error) {
	if len(t.secret) == 0 {
		return "", "", fmt.Errorf("JWT secret not configured")
	}

	now := t.now()
	jti := uuid.NewString()
	claims := jwt.MapClaims{
		"sub": subject,
		"iss": t.issuer,
		"aud": t.audience,
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"jti": jti,
	}
	if purpose != PurposeAccess {
		claims["purpose"] = purpose
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", "", err
	}
	return signed, jti, nil
}

// Parse verifies signature, time window, issuer and audience, and that the
// token was issued for purpose.
func (t *Tokens) Parse(tokenString, purpose string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}
	if t.audience != "" {
		opts = append(opts, jwt.WithAudience(t.audience))
	}

	token, err := jwt.Parse(tokenString, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	sub, err := mc.GetSubject()
	if err != nil || sub == "" {
		return nil, ErrInvalidToken
	}
	got, _ := mc["purpose"].(string)
	if got != purpose {
		return nil, ErrWrongPurpose
	}

	claims := &Claims{Subject: sub, Purpose: got}
	claims.ID, _ = mc["jti"].(string)
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}
