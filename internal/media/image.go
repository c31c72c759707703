// Package media processes uploaded images and stores them on the image host.
package media

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // register decoders
	"image/jpeg"
	_ "image/png"
	"mime"
	"net/http"
	"strings"

	"istancool/internal/models"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// Upload policy: fit inside MaxWidth x MaxHeight without upscaling, then
// re-encode as WebP, or JPEG when the WebP encoder fails.
const (
	MaxWidth    = 1200
	MaxHeight   = 800
	WebPQuality = 80
	JPEGQuality = 85

	DefaultMaxUploadSizeMB = 10

	// MaxPixels caps width*height of an upload. Decoding allocates per pixel,
	// so a small compressed file can otherwise claim gigabytes.
	MaxPixels = 40_000_000
)

// File is one uploaded image as received from the client.
type File struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Processed is an image ready to be stored.
type Processed struct {
	Data        []byte
	ContentType string
	Ext         string
	Width       int
	Height      int
}

// Process validates f and applies the upload policy.
func Process(f File, maxBytes int64) (*Processed, error) {
	if len(f.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if maxBytes > 0 && int64(len(f.Content)) > maxBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", maxBytes/(1024*1024)))
	}

	detected := http.DetectContentType(f.Content)
	if !isAllowedImageMIME(detected) {
		return nil, models.NewValidationError("Invalid image type")
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(f.Content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, models.NewValidationError("Invalid image dimensions")
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, models.NewValidationError(fmt.Sprintf("Image too large (max %d megapixels)", MaxPixels/1_000_000))
	}

	decoded, format, err := image.Decode(bytes.NewReader(f.Content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	source := decodedFormatToMime(format)
	if source == "" {
		return nil, models.NewValidationError("Unsupported image format")
	}
	if provided := normalizeContentType(f.ContentType); strings.HasPrefix(provided, "image/") && !isMatchingContentType(provided, source) {
		return nil, models.NewValidationError("Image content type mismatch")
	}

	fitted := imaging.Fit(decoded, MaxWidth, MaxHeight, imaging.Lanczos)
	b := fitted.Bounds()

	if data, err := encodeWebP(fitted, WebPQuality); err == nil {
		return &Processed{Data: data, ContentType: "image/webp", Ext: "webp", Width: b.Dx(), Height: b.Dy()}, nil
	}
	data, err := encodeJPEG(fitted, JPEGQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &Processed{Data: data, ContentType: "image/jpeg", Ext: "jpg", Width: b.Dx(), Height: b.Dy()}, nil
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	d := normalizeContentType(detected)
	if p == d {
		return true
	}
	return (p == "image/jpg" && d == "image/jpeg") || (p == "image/jpeg" && d == "image/jpg")
}

func decodedFormatToMime(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}
