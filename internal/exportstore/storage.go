// Package exportstore archives generated export workbooks so finished
// exports can be re-downloaded without regenerating them.
package exportstore

import (
	"context"
	"io"
	"time"
)

// StorageDriver defines how archived export artifacts reach binary storage.
type StorageDriver interface {
	// Save writes the artifact under the given key.
	Save(ctx context.Context, key string, body io.Reader, contentType string) error

	// Get streams the artifact back along with its content type.
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)

	// Delete removes the artifact.
	Delete(ctx context.Context, key string) error

	// GenerateURL returns a public-facing URL for the artifact.
	GenerateURL(ctx context.Context, key string, expires time.Duration) (string, error)
}
