package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// LocalStore writes image files under a managed uploads directory. The
// retrieval reference is the path relative to that directory.
type LocalStore struct {
	baseDir string
}

// NewLocalStore creates the uploads directory if needed.
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "could not create uploads directory")
	}
	return &LocalStore{baseDir: baseDir}, nil
}

// resolve joins a reference with the base directory, rejecting references
// that would escape it.
func (s *LocalStore) resolve(ref string) (string, error) {
	cleaned := filepath.Clean(ref)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || filepath.IsAbs(cleaned) {
		return "", ErrNotFound
	}
	return filepath.Join(s.baseDir, cleaned), nil
}

// Save writes the bytes to disk and returns the relative path.
func (s *LocalStore) Save(_ context.Context, data []byte, filename, _ string) (string, error) {
	path, err := s.resolve(filename)
	if err != nil {
		return "", errors.Errorf("invalid filename: %s", filename)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errors.Wrap(err, "could not create upload subdirectory")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrap(err, "could not write upload file")
	}
	return filepath.ToSlash(filepath.Clean(filename)), nil
}

// Open streams a previously stored file back.
func (s *LocalStore) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	path, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not open stored file")
	}
	return f, nil
}

// Delete removes a stored file.
func (s *LocalStore) Delete(_ context.Context, ref string) error {
	path, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); os.IsNotExist(err) {
		return ErrNotFound
	} else if err != nil {
		return errors.Wrap(err, "could not delete stored file")
	}
	return nil
}
