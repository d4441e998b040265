package storage

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	data := []byte("jpeg bytes")

	ref, err := store.Save(ctx, data, "first-email/abc123.jpg", "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "first-email/abc123.jpg", ref)

	reader, err := store.Open(ctx, ref)
	require.NoError(t, err)
	got, err := io.ReadAll(reader)
	require.NoError(t, err)
	reader.Close()
	assert.Equal(t, data, got)

	require.NoError(t, store.Delete(ctx, ref))
	_, err = store.Open(ctx, ref)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStoreOpenUnknownRef(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open(context.Background(), "missing.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStoreDeleteUnknownRef(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	assert.ErrorIs(t, store.Delete(context.Background(), "missing.jpg"), ErrNotFound)
}

func TestLocalStoreRejectsEscapingRefs(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	_, err = store.Open(ctx, "../outside.jpg")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Open(ctx, filepath.Join(string(filepath.Separator), "etc", "passwd"))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Save(ctx, []byte("x"), "../escape.jpg", "image/jpeg")
	assert.Error(t, err)
}
