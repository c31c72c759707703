package media

import (
	"context"
	"path"
	"time"

	"istancool/internal/middleware"
	"istancool/internal/models"
	"istancool/internal/observability"

	"github.com/google/uuid"
)

// Uploader applies the upload policy and puts results on a Store under one
// folder.
type Uploader struct {
	store    Store
	folder   string
	maxBytes int64
}

// NewUploader returns an Uploader. A non-positive maxMB uses the default.
func NewUploader(store Store, folder string, maxMB int) *Uploader {
	if maxMB <= 0 {
		maxMB = DefaultMaxUploadSizeMB
	}
	return &Uploader{store: store, folder: folder, maxBytes: int64(maxMB) * 1024 * 1024}
}

// Upload processes and stores f, returning its public URL and object key.
func (u *Uploader) Upload(ctx context.Context, f File) (url, key string, err error) {
	start := time.Now()
	defer func() {
		observability.MediaUploadLatency.Observe(time.Since(start).Seconds())
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		observability.MediaUploads.WithLabelValues(outcome).Inc()
	}()

	p, err := Process(f, u.maxBytes)
	if err != nil {
		return "", "", err
	}

	key = path.Join(u.folder, uuid.NewString()+"."+p.Ext)
	url, err = u.store.Put(ctx, key, p.ContentType, p.Data)
	if err != nil {
		return "", "", models.NewInternalError(err)
	}
	return url, key, nil
}

// Batch groups the uploads of one request so a failed write can remove
// everything it already stored.
type Batch struct {
	u    *Uploader
	keys []string
}

// NewBatch starts an empty batch. A nil Uploader yields a batch that rejects
// every file.
func (u *Uploader) NewBatch() *Batch {
	return &Batch{u: u}
}

// Upload stores f as part of the batch.
func (b *Batch) Upload(ctx context.Context, f File) (string, error) {
	if b.u == nil || b.u.store == nil {
		return "", models.NewValidationError("Image uploads are not configured")
	}
	url, key, err := b.u.Upload(ctx, f)
	if err != nil {
		return "", err
	}
	b.keys = append(b.keys, key)
	return url, nil
}

// Keys returns the object keys stored so far.
func (b *Batch) Keys() []string {
	return b.keys
}

// Rollback deletes every object of the batch. Failures are logged only.
func (b *Batch) Rollback(ctx context.Context) {
	if b.u == nil || b.u.store == nil {
		return
	}
	for _, key := range b.keys {
		if err := b.u.store.Delete(ctx, key); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to remove orphaned upload", "key", key, "error", err)
		}
	}
	b.keys = nil
}
