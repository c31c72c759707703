package media

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"strings"
	"testing"

	"istancool/internal/models"
	"istancool/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessFitsWithoutUpscaling(t *testing.T) {
	tests := []struct {
		name  string
		w, h  int
		wantW int
		wantH int
	}{
		{"wide", 2400, 800, 1200, 400},
		{"tall", 800, 1600, 400, 800},
		{"small stays", 300, 200, 300, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Process(File{Filename: "x.png", ContentType: "image/png", Content: testutil.TinyPNG(t, tt.w, tt.h)}, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.wantW, p.Width)
			assert.Equal(t, tt.wantH, p.Height)

			cfg, format, err := image.DecodeConfig(bytes.NewReader(p.Data))
			require.NoError(t, err)
			assert.Equal(t, tt.wantW, cfg.Width)
			assert.Contains(t, []string{"webp", "jpeg"}, format)
			assert.Equal(t, decodedFormatToMime(format), p.ContentType)
		})
	}
}

func TestProcessRejects(t *testing.T) {
	png := testutil.TinyPNG(t, 10, 10)

	tests := []struct {
		name    string
		file    File
		max     int64
		wantMsg string
	}{
		{"empty", File{}, 0, "No file uploaded"},
		{"too large", File{Content: png}, 8, "File too large"},
		{"not an image", File{Content: []byte("hello world, plainly text")}, 0, "Invalid image type"},
		{"mismatch", File{Content: png, ContentType: "image/jpeg"}, 0, "content type mismatch"},
		// A header alone is enough to claim any size; it must be refused before decoding.
		{"too many pixels", File{Content: pngHeader(20000, 20000)}, 0, "Image too large"},
		{"at the pixel budget but truncated", File{Content: pngHeader(8000, 5000)}, 0, "Invalid image file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Process(tt.file, tt.max)
			var appErr *models.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, models.CodeValidation, appErr.Code)
			assert.Contains(t, appErr.Message, tt.wantMsg)
		})
	}
}

// pngHeader returns a PNG that ends after a 16-bit RGBA IHDR of w x h.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8] = 16
	ihdr[9] = 6
	chunk := append([]byte("IHDR"), ihdr...)

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestBatchUploadAndRollback(t *testing.T) {
	store := NewMemoryStore("https://cdn.test")
	u := NewUploader(store, "blog_images", 1)
	ctx := context.Background()

	b := u.NewBatch()
	url, err := b.Upload(ctx, File{ContentType: "image/png", Content: testutil.TinyPNG(t, 20, 20)})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "https://cdn.test/blog_images/"))
	require.Len(t, b.Keys(), 1)
	assert.Equal(t, 1, store.Len())

	b.Rollback(ctx)
	assert.Equal(t, 0, store.Len())
	assert.Empty(t, b.Keys())
}

func TestBatchStoreFailure(t *testing.T) {
	store := NewMemoryStore("https://cdn.test")
	store.FailPut = errors.New("host down")
	b := NewUploader(store, "blog_images", 0).NewBatch()

	_, err := b.Upload(context.Background(), File{Content: testutil.TinyPNG(t, 5, 5)})
	assert.Equal(t, 500, models.StatusFor(err))
	assert.Empty(t, b.Keys())
}

func TestNilUploaderRejects(t *testing.T) {
	var u *Uploader
	_, err := u.NewBatch().Upload(context.Background(), File{Content: []byte{1}})
	assert.Equal(t, 400, models.StatusFor(err))
}

func TestS3StoreURL(t *testing.T) {
	tests := []struct {
		name string
		s    S3Store
		want string
	}{
		{"public base", S3Store{publicURL: "https://img.istancool.com", bucket: "b"}, "https://img.istancool.com/k.webp"},
		{"path style", S3Store{endpoint: "http://minio:9000", bucket: "b", pathStyle: true}, "http://minio:9000/b/k.webp"},
		{"virtual host", S3Store{endpoint: "https://s3.example.com", bucket: "b"}, "https://b.s3.example.com/k.webp"},
		{"aws default", S3Store{bucket: "b", region: "eu-central-1"}, "https://b.s3.eu-central-1.amazonaws.com/k.webp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.s.URL("k.webp"))
		})
	}
}

func TestNewS3StoreRequiresBucket(t *testing.T) {
	_, err := NewS3Store(context.Background(), S3Config{Region: "us-east-1"})
	assert.Error(t, err)

	s, err := NewS3Store(context.Background(), S3Config{
		Region: "us-east-1", Bucket: "istancool", AccessKey: "ak", SecretKey: "sk",
		Endpoint: "http://localhost:9000/", UsePathStyle: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/istancool/a.jpg", s.URL("a.jpg"))
}
