package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrNotFound = errors.New("object not found")

type Object struct {
	Path    string
	Size    int64
	Created time.Time
}

// ObjectStore is the binary side of an upload. Paths are slash separated and relative to the store root.
type ObjectStore interface {
	Put(ctx context.Context, path string, r io.Reader, contentType string) error
	URL(ctx context.Context, path string) (string, error)
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, prefix string) ([]Object, error)
}
