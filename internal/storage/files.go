// Package storage keeps attachment contents on the local disk, one file per UID.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ErrTooLarge is returned when the content exceeds the size limit.
var ErrTooLarge = errors.New("file is too large")

type Files struct {
	dir string
}

// NewFiles creates dir if needed.
func NewFiles(dir string) (*Files, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create files dir: %w", err)
	}
	return &Files{dir: dir}, nil
}

// NewUID returns a fresh storage identifier.
func NewUID() string {
	return uuid.NewString()
}

func (f *Files) path(uid string) (string, error) {
	if _, err := uuid.Parse(uid); err != nil {
		return "", fmt.Errorf("invalid file uid %q", uid)
	}
	return filepath.Join(f.dir, uid), nil
}

// Save writes at most limit bytes from r under uid and returns the size.
// Content over the limit is discarded and reported as ErrTooLarge.
func (f *Files) Save(uid string, r io.Reader, limit int64) (int64, error) {
	path, err := f.path(uid)
	if err != nil {
		return 0, err
	}

	out, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}

	n, err := io.Copy(out, io.LimitReader(r, limit+1))
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && n > limit {
		err = ErrTooLarge
	}
	if err != nil {
		os.Remove(path)
		return 0, err
	}

	return n, nil
}

// Open returns the content stored under uid.
func (f *Files) Open(uid string) (*os.File, error) {
	path, err := f.path(uid)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Remove deletes the content stored under uid. Missing content is not an error.
func (f *Files) Remove(uid string) error {
	path, err := f.path(uid)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
