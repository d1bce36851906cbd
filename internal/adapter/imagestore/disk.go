package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"foodtracker/internal/domain"
)

// DiskStore writes images into a directory that the web server exposes
// under urlPrefix, and returns the public URL of each file.
type DiskStore struct {
	dir       string
	urlPrefix string
}

var _ domain.ImageStore = (*DiskStore)(nil)

// NewDiskStore creates dir if needed. urlPrefix is the path the directory
// is served under, e.g. "/static/uploads".
func NewDiskStore(dir, urlPrefix string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("imagestore: create %s: %w", dir, err)
	}
	return &DiskStore{dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

// Save writes r to <dir>/<sanitised filename>, replacing any existing file
// with the same name, and returns <urlPrefix>/<sanitised filename>.
func (s *DiskStore) Save(ctx context.Context, filename string, r io.Reader, contentType string) (string, error) {
	name := SanitizeFilename(filename)
	if name == "" {
		return "", ErrInvalidFilename
	}
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("imagestore: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("imagestore: write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("imagestore: %w", err)
	}
	return s.urlPrefix + "/" + name, nil
}

// Delete removes the file behind a URL returned by Save.
func (s *DiskStore) Delete(ctx context.Context, ref string) error {
	name, ok := strings.CutPrefix(ref, s.urlPrefix+"/")
	if !ok || name == "" || SanitizeFilename(name) != name {
		return fmt.Errorf("imagestore: %q is not a file in %s", ref, s.dir)
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("imagestore: %w", err)
	}
	return nil
}
