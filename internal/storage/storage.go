// Package storage provides the object store holding generated and uploaded
// image bytes. Two drivers exist: an in-process memory store for development
// and tests, and an S3-compatible store for production.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound      = errors.New("storage: object not found")
	ErrInvalidKey    = errors.New("storage: invalid object key")
	ErrUnknownDriver = errors.New("storage: unknown driver")
)

// Object is a stored blob with its content type.
type Object struct {
	Key         string
	ContentType string
	Data        []byte
}

// ObjectStore stores and retrieves immutable blobs by key.
type ObjectStore interface {
	// Put stores data under key, overwriting any existing object.
	Put(ctx context.Context, key, contentType string, data []byte) error
	// Get retrieves the object stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) (*Object, error)
	// Delete removes the object stored under key. Deleting an absent key is
	// not an error.
	Delete(ctx context.Context, key string) error
	// URL returns the public URL under which the object can be fetched.
	URL(key string) string
}

// ValidateKey rejects keys that could escape the store's namespace.
func ValidateKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
