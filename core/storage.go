package core

import (
	"context"
	"io"
)

// FileStorage persists uploaded files.
type FileStorage interface {
	// Save stores the content of r under dir and returns the public location of the file.
	Save(ctx context.Context, dir, filename, contentType string, r io.Reader) (string, error)
	// Delete removes the file at the location returned by Save.
	Delete(ctx context.Context, location string) error
}
