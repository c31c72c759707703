// Package testutil provides shared fixtures for tests.
package testutil

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync/atomic"
	"testing"

	"istancool/internal/database"
	"istancool/internal/models"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewSQLiteDB opens a private in-memory database with the full schema. A
// single connection keeps transactions and plain reads on the same database.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:istancool_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

// CreateUser inserts an active user with role and password "password123".
func CreateUser(t *testing.T, db *gorm.DB, email string, role models.Role) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	u := &models.User{
		Email:          email,
		FirstName:      "Test",
		LastName:       string(role),
		HashedPassword: string(hash),
		Role:           role,
		IsActive:       true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateCategory inserts a category with slug derived by the caller.
func CreateCategory(t *testing.T, db *gorm.DB, name, slug string, active bool) *models.Category {
	t.Helper()

	c := &models.Category{Name: name, Slug: slug, Color: "#e11d48", IsActive: active}
	require.NoError(t, db.Create(c).Error)
	return c
}

// CreateDistrict inserts an active district.
func CreateDistrict(t *testing.T, db *gorm.DB, name, slug string, region models.Region) *models.District {
	t.Helper()

	d := &models.District{Name: name, Slug: slug, Region: region, IsActive: true}
	require.NoError(t, db.Create(d).Error)
	return d
}

// CreatePost inserts an active post in status by author under category.
func CreatePost(t *testing.T, db *gorm.DB, title, slug string, status models.PostStatus, authorID, categoryID uint) *models.Post {
	t.Helper()

	p := &models.Post{
		Title:      title,
		Slug:       slug,
		Status:     status,
		IsActive:   true,
		Blocks:     models.Blocks{},
		CategoryID: categoryID,
		AuthorID:   authorID,
	}
	require.NoError(t, db.Omit("Category", "District", "Author").Create(p).Error)
	return p
}

// TinyPNG returns an in-memory PNG byte slice with the requested dimensions.
func TinyPNG(t interface {
	Helper()
	Fatalf(string, ...any)
}, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, G: 30, B: 70, A: 255})
	}
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
