package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
)

// Spool holds uploaded audio on local disk until the pipeline is done with it.
type Spool struct {
	dir string
}

// NewSpool creates the spool directory if needed.
func NewSpool(dir string) (*Spool, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &Spool{dir: dir}, nil
}

// Save streams r into a new spool file with the given extension and returns
// its path and size. The file only appears under its final name once fully
// written.
func (s *Spool) Save(r io.Reader, ext string) (string, int64, error) {
	path := filepath.Join(s.dir, uuid.NewString()+ext)

	// Atomic write: temp file + rename
	tmp, err := os.CreateTemp(s.dir, ".upload-*.tmp")
	if err != nil {
		return "", 0, fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", n, fmt.Errorf("write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", n, fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", n, fmt.Errorf("rename: %w", err)
	}
	return path, n, nil
}

// Adopt moves an existing file into the spool, copying when src lives on
// another filesystem.
func (s *Spool) Adopt(src, ext string) (string, error) {
	dst := filepath.Join(s.dir, uuid.NewString()+ext)
	err := os.Rename(src, dst)
	if err == nil {
		return dst, nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return "", fmt.Errorf("move %s: %w", src, err)
	}

	f, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", src, err)
	}
	path, _, err := s.Save(f, ext)
	f.Close()
	if err != nil {
		return "", err
	}
	if err := os.Remove(src); err != nil {
		return path, fmt.Errorf("remove %s: %w", src, err)
	}
	return path, nil
}

// Remove deletes a spooled file. A missing file is not an error.
func (s *Spool) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Dir returns the spool directory path.
func (s *Spool) Dir() string { return s.dir }
