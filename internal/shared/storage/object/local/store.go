package local

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"docsearch-backend/internal/shared/storage/object"
)

// Store implements ObjectStore using the local filesystem. Presigned URLs
// point at the dev-only local-objects routes served by the API, so the
// upload flow works end to end without AWS.
type Store struct {
	baseDir string
	baseURL string
}

// New creates a local object store rooted at baseDir. baseURL is the API
// origin used to build pseudo-presigned URLs.
func New(baseDir, baseURL string) *Store {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &Store{baseDir: baseDir, baseURL: strings.TrimRight(baseURL, "/")}
}

// Open opens a stored object for reading.
func (s *Store) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullPath, err := s.resolve(storageKey)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("open local object key=%s: %w", storageKey, object.ErrNotFound)
		}
		return nil, err
	}
	return f, nil
}

// Put writes the reader to disk at the given storage key.
func (s *Store) Put(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	fullPath, err := s.resolve(storageKey)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return 0, fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	written, err := io.Copy(f, r)
	if err != nil {
		return 0, fmt.Errorf("write body: %w", err)
	}
	_ = contentType
	return written, nil
}

// Delete removes the object file. Missing files are not an error.
func (s *Store) Delete(ctx context.Context, storageKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fullPath, err := s.resolve(storageKey)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove local object key=%s: %w", storageKey, err)
	}
	return nil
}

// PresignPut returns a dev URL accepting a direct PUT for the key.
func (s *Store) PresignPut(ctx context.Context, storageKey string, contentType string, expires time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	_ = contentType
	_ = expires
	return s.baseURL + "/api/v1/local-objects/" + url.PathEscape(storageKey), nil
}

// PresignGet returns a dev URL serving the object for download.
func (s *Store) PresignGet(ctx context.Context, storageKey string, expires time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	_ = expires
	return s.baseURL + "/api/v1/local-objects/" + url.PathEscape(storageKey), nil
}

func (s *Store) resolve(storageKey string) (string, error) {
	clean := filepath.Clean(storageKey)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid storage key")
	}
	return filepath.Join(s.baseDir, clean), nil
}

var _ object.ObjectStore = (*Store)(nil)
