// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"strings"

	"istancool/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// IsUniqueViolation reports whether err came from a unique index. It accepts
// translated GORM errors, raw pgx errors and the sqlite driver's message.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, pgUniqueViolation)
}

// IsForeignKeyViolation reports whether err came from a foreign key check.
func IsForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgForeignKeyViolation
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint")
}

// deleteUnreferenced deletes the row of model with id unless a post still
// points at it through column. Referenced rows give a conflict.
func deleteUnreferenced(ctx context.Context, db *gorm.DB, model any, id uint, column, notFound, inUse string) error {
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var refs int64
		if err := tx.Model(&models.Post{}).Where(column+" = ?", id).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return models.NewConflictError(inUse)
		}

		res := tx.Delete(model, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundMessage(notFound)
		}
		return nil
	})
	if err == nil {
		return nil
	}

	var appErr *models.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case IsForeignKeyViolation(err):
		// A post was written between the check and the delete.
		return models.NewConflictError(inUse)
	default:
		return models.NewInternalError(err)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
