package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var ErrInvalidName = errors.New("invalid blob name")

// LocalBlobStore keeps uploaded blobs as flat files in one directory.
type LocalBlobStore struct {
	dir string
}

func NewLocalBlobStore(dir string) *LocalBlobStore {
	return &LocalBlobStore{dir: dir}
}

// Dir returns the directory blobs are written to.
func (s *LocalBlobStore) Dir() string {
	return s.dir
}

// Save copies r into a file called name and returns its path and size.
// The directory is created on first use.
func (s *LocalBlobStore) Save(name string, r io.Reader) (string, int64, error) {
	if name == "" || name != BaseName(name) {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("failed to create blob directory: %w", err)
	}

	path := filepath.Join(s.dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create blob %s: %w", name, err)
	}

	size, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", 0, fmt.Errorf("failed to write blob %s: %w", name, err)
	}
	return path, size, nil
}

// BaseName strips any directory part a client put in a file name, under
// both slash conventions, so the result can never escape the store.
func BaseName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if name == "." || name == ".." {
		return ""
	}
	return name
}
