// Package blob stores uploaded images: small ones inline as data URLs,
// larger ones in an S3-compatible bucket.
package blob

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultInlineLimit is the largest image kept inline.
const DefaultInlineLimit = 700 * 1024

var (
	// ErrNotImage is returned for uploads that are not images.
	ErrNotImage = errors.New("upload is not an image")
	// ErrTooLarge is returned when an upload exceeds the inline limit and
	// no bucket is configured.
	ErrTooLarge = errors.New("image too large and no storage configured")
)

// Store writes objects and returns their public URL.
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// Uploader turns image uploads into URLs usable as logo or photo sources.
type Uploader struct {
	store       Store
	inlineLimit int
	now         func() time.Time
}

// NewUploader creates an uploader. store may be nil, in which case only
// images up to inlineLimit bytes are accepted.
func NewUploader(store Store, inlineLimit int) *Uploader {
	if inlineLimit <= 0 {
		inlineLimit = DefaultInlineLimit
	}
	return &Uploader{store: store, inlineLimit: inlineLimit, now: time.Now}
}

// Upload stores data under prefix and returns its URL.
func (u *Uploader) Upload(ctx context.Context, prefix, contentType string, data []byte) (string, error) {
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", ErrNotImage
	}

	if len(data) <= u.inlineLimit {
		return DataURL(contentType, data), nil
	}
	if u.store == nil {
		return "", ErrTooLarge
	}

	url, err := u.store.Put(ctx, Key(prefix, u.now()), contentType, data)
	if err != nil {
		return "", fmt.Errorf("storing image: %w", err)
	}
	return url, nil
}

// DataURL encodes data as a base64 data URL.
func DataURL(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Key returns a random object key under prefix, partitioned by date.
func Key(prefix string, t time.Time) string {
	return fmt.Sprintf("%s/%d/%d/%d/%v", strings.Trim(prefix, "/"), t.Year(), t.Month(), t.Day(), uuid.New())
}
