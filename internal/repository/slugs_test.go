package repository

import (
	"context"
	"testing"

	"istancool/internal/models"
	"istancool/internal/observability"
	"istancool/internal/testutil"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// staleLookups makes the next n slug lookups miss rows that already exist,
// the way a lookup does when a concurrent writer commits right after it.
func staleLookups(t *testing.T, n int) {
	t.Helper()
	lookup := resolveSlug
	t.Cleanup(func() { resolveSlug = lookup })
	resolveSlug = func(ctx context.Context, tx *gorm.DB, table, base string, excludeID uint) (string, error) {
		if n != 0 {
			n--
			return base, nil
		}
		return lookup(ctx, tx, table, base, excludeID)
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func insertPost(post *models.Post, calls *int) func(tx *gorm.DB, s string) error {
	return func(tx *gorm.DB, s string) error {
		*calls++
		post.Slug = s
		return tx.Omit("Category", "District", "Author").Create(post).Error
	}
}

func TestWriteWithSlug_RetriesLostRace(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, "yazar@example.com", models.RoleUser)
	cat := testutil.CreateCategory(t, db, "Gezi", "gezi", true)
	testutil.CreatePost(t, db, "Galata", "galata", models.PostApproved, author.ID, cat.ID)

	staleLookups(t, 1)
	retries := observability.SlugCollisions.WithLabelValues("posts", "insert_retry")
	before := counterValue(t, retries)

	post := &models.Post{Title: "Galata", Status: models.PostPending, IsActive: true, CategoryID: cat.ID, AuthorID: author.ID}
	calls := 0
	require.NoError(t, writeWithSlug(ctx, db, "posts", "galata", 0, insertPost(post, &calls)))

	assert.Equal(t, 2, calls)
	assert.Equal(t, "galata-1", post.Slug)
	assert.Equal(t, before+1, counterValue(t, retries))

	var count int64
	require.NoError(t, db.Model(&models.Post{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestWriteWithSlug_GivesUpWithConflict(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, "yazar@example.com", models.RoleUser)
	cat := testutil.CreateCategory(t, db, "Gezi", "gezi", true)
	testutil.CreatePost(t, db, "Galata", "galata", models.PostApproved, author.ID, cat.ID)

	staleLookups(t, -1)

	post := &models.Post{Title: "Galata", Status: models.PostPending, IsActive: true, CategoryID: cat.ID, AuthorID: author.ID}
	calls := 0
	err := writeWithSlug(ctx, db, "posts", "galata", 0, insertPost(post, &calls))

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeConflict, appErr.Code)
	assert.Contains(t, appErr.Message, "Could not reserve a unique slug")
	assert.Equal(t, maxInsertAttempts, calls)
}

func TestWriteWithSlug_OtherUniqueIndexIsNotRetried(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	testutil.CreateCategory(t, db, "Spor", "spor", true)

	retries := observability.SlugCollisions.WithLabelValues("categories", "insert_retry")
	before := counterValue(t, retries)

	calls := 0
	err := writeWithSlug(ctx, db, "categories", "spor-haberleri", 0, func(tx *gorm.DB, s string) error {
		calls++
		return tx.Create(&models.Category{Name: "Spor", Slug: s, IsActive: true}).Error
	})

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeConflict, appErr.Code)
	assert.Equal(t, "Category with this name already exists", appErr.Message)
	assert.Equal(t, 1, calls)
	assert.Equal(t, before, counterValue(t, retries))
}
