package object

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound reports that no object exists at the requested storage key.
// It is distinct from transient backend failures so callers can decide
// whether a retry makes sense.
var ErrNotFound = errors.New("object not found")

// ObjectStore defines the contract for storing and retrieving resume binaries.
type ObjectStore interface {
	Save(ctx context.Context, ownerID string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, storageKey string) error
	SignURL(ctx context.Context, storageKey string, ttl time.Duration) (string, error)
}
