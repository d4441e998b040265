package storage

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"photo-sync-service/internal/config"
)

// ErrNotFound is returned by Open and Delete when the referenced blob does
// not exist in the active backend.
var ErrNotFound = errors.New("stored file not found")

// Store persists binary image bytes and returns an opaque retrieval
// reference: a relative path, an object key, or a CDN URL depending on the
// configured backend. Callers depend only on this interface.
type Store interface {
	Save(ctx context.Context, data []byte, filename, contentType string) (string, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	Delete(ctx context.Context, ref string) error
}

// NewStore builds the storage backend selected by configuration. Exactly
// one variant is active per deployment.
func NewStore(cfg *config.Config) (Store, error) {
	switch cfg.StorageBackend {
	case config.BackendLocal:
		return NewLocalStore(cfg.UploadsDir)
	case config.BackendMinio:
		client, err := NewMinioClient(cfg)
		if err != nil {
			return nil, errors.Wrap(err, "minio client initialization failed")
		}
		return NewMinioStore(client, cfg.MinioBucket), nil
	case config.BackendCloudinary:
		return NewCloudinaryStore(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey,
			cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
	default:
		return nil, errors.Errorf("unknown storage backend: %s", cfg.StorageBackend)
	}
}
