package repository

import (
	"context"
	"errors"
	"fmt"

	"istancool/internal/models"
	"istancool/internal/observability"
	"istancool/internal/slug"

	"gorm.io/gorm"
)

// maxInsertAttempts bounds how often a write is retried after losing a slug
// race to a concurrent insert.
const maxInsertAttempts = 3

// slugExists checks table for candidate, ignoring the row excludeID.
func slugExists(tx *gorm.DB, table string, excludeID uint) slug.ExistsFunc {
	return func(ctx context.Context, candidate string) (bool, error) {
		var count int64
		q := tx.WithContext(ctx).Table(table).Where("slug = ?", candidate)
		if excludeID != 0 {
			q = q.Where("id <> ?", excludeID)
		}
		if err := q.Count(&count).Error; err != nil {
			return false, err
		}
		return count > 0, nil
	}
}

// resolveSlug picks the first free candidate for base inside tx.
var resolveSlug = func(ctx context.Context, tx *gorm.DB, table, base string, excludeID uint) (string, error) {
	return slug.Unique(ctx, base, slugExists(tx, table, excludeID))
}

// uniqueConflicts names the non-slug unique index of each namespace.
var uniqueConflicts = map[string]string{
	"categories": "Category with this name already exists",
	"districts":  "District with this name already exists",
}

// writeWithSlug resolves a free slug from base and runs write with it in one
// transaction. When the write hits a unique violation and the slug it tried
// has been taken in the meantime, the attempt is rolled back and retried with
// a fresh lookup. A violation on any other unique index is a conflict right
// away.
func writeWithSlug(ctx context.Context, db *gorm.DB, table, base string, excludeID uint, write func(tx *gorm.DB, slug string) error) error {
	var lastErr error
	for attempt := 0; attempt < maxInsertAttempts; attempt++ {
		var tried string
		lastErr = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			s, err := resolveSlug(ctx, tx, table, base, excludeID)
			if err != nil {
				return err
			}
			if s != base {
				observability.SlugCollisions.WithLabelValues(table, "suffix").Inc()
			}
			tried = s
			return write(tx, s)
		})
		if lastErr == nil || !IsUniqueViolation(lastErr) {
			break
		}

		raced, err := slugExists(db, table, excludeID)(ctx, tried)
		if err != nil {
			return models.NewInternalError(err)
		}
		if !raced {
			msg, ok := uniqueConflicts[table]
			if !ok {
				msg = "Record already exists"
			}
			return models.NewConflictError(msg)
		}
		observability.SlugCollisions.WithLabelValues(table, "insert_retry").Inc()
	}

	switch {
	case lastErr == nil:
		return nil
	case IsUniqueViolation(lastErr):
		return models.NewConflictError(fmt.Sprintf("Could not reserve a unique slug for %q", base))
	case errors.Is(lastErr, slug.ErrExhausted):
		return models.NewConflictError(lastErr.Error())
	default:
		var appErr *models.AppError
		if errors.As(lastErr, &appErr) {
			return appErr
		}
		return models.NewInternalError(lastErr)
	}
}
