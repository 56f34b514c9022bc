package object

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound indicates the storage key does not exist in the backing store.
var ErrNotFound = errors.New("object not found")

// ObjectStore defines the contract for blob storage. Clients upload and
// download directly through presigned URLs; the service itself only reads,
// writes, and deletes by storage key.
type ObjectStore interface {
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	Put(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error)
	Delete(ctx context.Context, storageKey string) error
	PresignPut(ctx context.Context, storageKey string, contentType string, expires time.Duration) (string, error)
	PresignGet(ctx context.Context, storageKey string, expires time.Duration) (string, error)
}
