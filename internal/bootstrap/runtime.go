// Package bootstrap prepares a freshly connected database for serving.
package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"istancool/internal/config"
	"istancool/internal/middleware"
	"istancool/internal/models"
	"istancool/internal/seed"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Options control runtime initialization behavior.
type Options struct {
	SeedDistricts bool
}

// Prepare runs the idempotent startup steps: the development root admin and,
// when asked, the built-in district list.
func Prepare(ctx context.Context, cfg *config.Config, db *gorm.DB, opts Options) error {
	if err := EnsureRootAdmin(ctx, cfg, db); err != nil {
		return fmt.Errorf("failed to bootstrap development root admin: %w", err)
	}
	if opts.SeedDistricts {
		if _, err := seed.Districts(ctx, db); err != nil {
			return fmt.Errorf("failed to seed districts: %w", err)
		}
	}
	return nil
}

// EnsureRootAdmin creates or promotes ROOT_ADMIN_EMAIL to an active admin in
// development. It does nothing in any other environment or when either the
// email or the password is unset.
func EnsureRootAdmin(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") {
		return nil
	}
	email := models.NormalizeEmail(cfg.RootAdminEmail)
	if email == "" || cfg.RootAdminPassword == "" {
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(cfg.RootAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash root password: %w", err)
	}

	root := models.User{
		Email:          email,
		FirstName:      "Root",
		LastName:       "Admin",
		HashedPassword: string(hashedPassword),
		Role:           models.RoleAdmin,
		IsActive:       true,
	}
	// Existing accounts keep their password and names.
	err = db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.Assignments(map[string]any{"role": models.RoleAdmin, "is_active": true}),
	}).Create(&root).Error
	if err != nil {
		return err
	}

	middleware.Logger.InfoContext(ctx, "development root admin ensured", "email", email)
	return nil
}
