package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"istancool/internal/models"
	"istancool/internal/repository"
	"istancool/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// eventRecorder captures published post events.
type eventRecorder struct {
	mu     sync.Mutex
	events []models.PostEvent
	err    error
}

func (r *eventRecorder) PublishPostEvent(_ context.Context, ev models.PostEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *eventRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type repos struct {
	db         *gorm.DB
	users      repository.UserRepository
	categories repository.CategoryRepository
	districts  repository.DistrictRepository
	posts      repository.PostRepository
}

func newRepos(t *testing.T) repos {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	return repos{
		db:         db,
		users:      repository.NewUserRepository(db),
		categories: repository.NewCategoryRepository(db),
		districts:  repository.NewDistrictRepository(db),
		posts:      repository.NewPostRepository(db),
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code, appErr.Message)
}

func ptr[T any](v T) *T {
	return &v
}
