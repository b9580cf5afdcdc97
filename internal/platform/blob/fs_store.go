// Package blob provides the filesystem implementation of the blob store
// contract. Audio bytes live under a root directory keyed by their
// storage key; the upload side writes them, the pipeline only reads.
package blob

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/voxnote/voxnote-api/internal/store"
)

// FSStore reads blobs from a local directory. Storage keys are relative
// paths under the root; keys escaping the root are rejected.
type FSStore struct {
	root   string
	logger *slog.Logger
}

// NewFSStore creates a filesystem blob store rooted at dir. The directory
// must exist.
func NewFSStore(dir string, logger *slog.Logger) (*FSStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("blob root directory cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("blob root directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("blob root %q is not a directory", dir)
	}
	return &FSStore{
		root:   dir,
		logger: logger.With(slog.String("component", "blob_store")),
	}, nil
}

var _ store.BlobStore = (*FSStore)(nil)

// FetchBlob implements store.BlobStore.FetchBlob.
// Returns store.ErrBlobNotFound if no file exists under the key.
func (s *FSStore) FetchBlob(ctx context.Context, storageKey string) ([]byte, error) {
	path, err := s.resolve(storageKey)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", store.ErrBlobNotFound, storageKey)
		}
		s.logger.Error("failed to read blob",
			slog.String("storage_key", storageKey),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to read blob %q: %w", storageKey, err)
	}
	return data, nil
}

// PutBlob writes bytes under the key, creating parent directories as
// needed. Used by the dev server's upload path and by tests.
func (s *FSStore) PutBlob(storageKey string, data []byte) error {
	path, err := s.resolve(storageKey)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), fs.FileMode(0o755)); err != nil {
		return fmt.Errorf("failed to create blob directory: %w", err)
	}
	if err := os.WriteFile(path, data, fs.FileMode(0o644)); err != nil {
		return fmt.Errorf("failed to write blob %q: %w", storageKey, err)
	}
	return nil
}

func (s *FSStore) resolve(storageKey string) (string, error) {
	if storageKey == "" {
		return "", fmt.Errorf("%w: empty storage key", store.ErrBlobNotFound)
	}
	cleaned := filepath.Clean(storageKey)
	if strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage key %q escapes blob root", storageKey)
	}
	return filepath.Join(s.root, cleaned), nil
}
