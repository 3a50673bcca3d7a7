package domain

import (
	"context"
	"io"
)

// BlobWriter uploads objects to blob storage.
type BlobWriter interface {
	// Put uploads data under path with the given content type.
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}
