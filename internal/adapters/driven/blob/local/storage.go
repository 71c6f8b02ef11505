// Package local stores uploaded files under a local directory.
package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driven"
)

// Ensure Storage implements the interface.
var _ driven.BlobStorage = (*Storage)(nil)

// Storage resolves blob paths relative to a root directory.
type Storage struct {
	root string
}

// New creates a local blob storage rooted at dir. The directory is created
// on first upload.
func New(dir string) (*Storage, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve blob root: %w", err)
	}
	return &Storage{root: abs}, nil
}

// Root returns the absolute root directory.
func (s *Storage) Root() string {
	return s.root
}

// Download reads the file stored at path.
func (s *Storage) Download(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: blob %q", domain.ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read blob %q: %w", path, err)
	}
	return data, nil
}

// Upload writes data to path, creating parent directories.
func (s *Storage) Upload(ctx context.Context, data []byte, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return fmt.Errorf("create blob directory: %w", err)
	}

	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write blob %q: %w", path, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write blob %q: %w", path, err)
	}
	return nil
}

// resolve maps a blob path to a file under root. Paths that escape the
// root are rejected.
func (s *Storage) resolve(path string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(strings.TrimSpace(path)))
	if clean == string(filepath.Separator) {
		return "", fmt.Errorf("%w: empty blob path", domain.ErrInvalidInput)
	}
	full := filepath.Join(s.root, clean)
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: blob path %q escapes root", domain.ErrInvalidInput, path)
	}
	return full, nil
}
