package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photo-sync-service/internal/config"
)

func TestNewStoreSelectsLocalBackend(t *testing.T) {
	cfg := &config.Config{
		StorageBackend: config.BackendLocal,
		UploadsDir:     t.TempDir(),
	}

	store, err := NewStore(cfg)
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, store)
}

func TestNewStoreSelectsCloudinaryBackend(t *testing.T) {
	cfg := &config.Config{
		StorageBackend:      config.BackendCloudinary,
		CloudinaryCloudName: "demo",
		CloudinaryAPIKey:    "key",
		CloudinaryAPISecret: "secret",
		CloudinaryFolder:    "photos",
	}

	store, err := NewStore(cfg)
	require.NoError(t, err)
	assert.IsType(t, &CloudinaryStore{}, store)
}

func TestNewStoreRejectsUnknownBackend(t *testing.T) {
	cfg := &config.Config{StorageBackend: "gridfs"}

	_, err := NewStore(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage backend")
}
