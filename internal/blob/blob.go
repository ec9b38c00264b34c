// Package blob stores file bytes behind a URL-producing interface.
package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrObjectNotFound is returned when a key has no stored object.
	ErrObjectNotFound = errors.New("object not found")
	// ErrURLUnsupported is returned by backends that cannot hand out direct URLs.
	ErrURLUnsupported = errors.New("direct urls unsupported")
)

// Store persists opaque objects addressed by key.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	// URL returns a time-limited direct download URL for key.
	URL(ctx context.Context, key, filename string, ttl time.Duration) (string, error)
}

// Locator tells a caller how to fetch stored bytes. An empty URL means the bytes
// must be streamed through the API with Open.
type Locator struct {
	Key string `json:"-"`
	URL string `json:"url,omitempty"`
}

// Locate builds a Locator for key, falling back to streaming when the backend has no URLs.
func Locate(ctx context.Context, store Store, key, filename string, ttl time.Duration) (Locator, error) {
	url, err := store.URL(ctx, key, filename, ttl)
	if err != nil {
		if errors.Is(err, ErrURLUnsupported) {
			return Locator{Key: key}, nil
		}
		return Locator{}, err
	}
	return Locator{Key: key, URL: url}, nil
}
