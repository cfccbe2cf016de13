// Package objectstore uploads blobs and returns their public URL.
package objectstore

import (
	"context"
	"io"
)

// ObjectStore stores a blob under key and returns the URL it is served from.
// Put overwrites an existing object with the same key.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}
