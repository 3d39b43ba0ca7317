package exportstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Artifact describes an archived export workbook.
type Artifact struct {
	ID          uuid.UUID
	Name        string
	Key         string
	URL         string
	Size        int64
	ContentType string
}

// Service writes finished export workbooks to binary storage. Keys are
// partitioned by generation date so artifacts stay browsable on disk and
// cheap to expire by prefix.
type Service struct {
	Driver StorageDriver
	now    func() time.Time
}

func NewService(driver StorageDriver) *Service {
	return &Service{Driver: driver, now: time.Now}
}

// Archive stores a generated workbook and logs where it landed. The returned
// error reflects the storage write; URL generation failures roll the write back.
func (s *Service) Archive(ctx context.Context, filename, contentType string, data []byte) error {
	_, err := s.Store(ctx, filename, contentType, data)
	return err
}

// Store archives the workbook and returns its metadata.
func (s *Service) Store(ctx context.Context, filename, contentType string, data []byte) (*Artifact, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	id := uuid.New()
	key := s.artifactKey(id, filename)

	if err := s.Driver.Save(ctx, key, bytes.NewReader(data), contentType); err != nil {
		return nil, fmt.Errorf("storage driver failed: %w", err)
	}

	url, err := s.Driver.GenerateURL(ctx, key, 0)
	if err != nil {
		if delErr := s.Driver.Delete(ctx, key); delErr != nil {
			slog.WarnContext(ctx, "failed to cleanup orphaned artifact", "key", key, "error", delErr)
		}
		return nil, fmt.Errorf("failed to generate URL: %w", err)
	}

	artifact := &Artifact{
		ID:          id,
		Name:        filename,
		Key:         key,
		URL:         url,
		Size:        int64(len(data)),
		ContentType: contentType,
	}

	slog.InfoContext(ctx, "export artifact archived", "id", id, "key", key, "size", artifact.Size)
	return artifact, nil
}

// Open retrieves an archived artifact and its content type.
func (s *Service) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	return s.Driver.Get(ctx, key)
}

// Remove deletes an archived artifact.
func (s *Service) Remove(ctx context.Context, key string) error {
	return s.Driver.Delete(ctx, key)
}

// artifactKey builds a date-partitioned key: 2025/03/15/<uuid>_<name>.
func (s *Service) artifactKey(id uuid.UUID, filename string) string {
	day := s.now().UTC().Format("2006/01/02")
	return path.Join(day, fmt.Sprintf("%s_%s", id.String(), sanitizeName(filename)))
}

// sanitizeName strips path separators and control characters from a
// user-visible filename before it becomes part of a storage key.
func sanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r < 0x20 || r == 0x7f:
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "artifact"
	}
	return b.String()
}
