package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// localStore reads legacy certificate files from a base directory on disk.
// This mirrors where the pre-embedded deployment wrote uploaded files.
type localStore struct {
	baseDir string
}

// NewLocalStore creates a store rooted at baseDir.
func NewLocalStore(baseDir string) CertificateStore {
	return &localStore{baseDir: baseDir}
}

// Open resolves relPath beneath the base directory and opens it. The stored
// path is cleaned and joined under the base, so traversal segments cannot
// escape it.
func (s *localStore) Open(_ context.Context, relPath string) (io.ReadCloser, error) {
	rel := strings.TrimPrefix(relPath, "/")
	rel = filepath.Clean(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, ErrObjectNotFound
	}

	f, err := os.Open(filepath.Join(s.baseDir, rel))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, err
	}
	return f, nil
}
