package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// PublicPrefix is the URL prefix under which stored files are served.
const PublicPrefix = "/uploads"

var whitespace = regexp.MustCompile(`\s+`)

// DiskStore implements domain.FileStore on the local filesystem. Files are
// written directly under Root and served statically under PublicPrefix.
type DiskStore struct {
	Root string
}

// New creates a DiskStore rooted at the given directory.
func New(root string) *DiskStore {
	return &DiskStore{Root: root}
}

// EnsureRoot creates the storage root, including parents, if it is missing.
func (s *DiskStore) EnsureRoot() error {
	if err := os.MkdirAll(s.Root, 0o755); err != nil {
		return fmt.Errorf("create uploads root: %w", err)
	}
	return nil
}

// Save writes the bytes under a generated collision-resistant name and
// returns the public relative URL. The name combines a nanosecond timestamp,
// the upload submission index, and the sanitized original name.
func (s *DiskStore) Save(ctx context.Context, data []byte, originalName string, seq int) (string, error) {
	name := fmt.Sprintf("%d-%d-%s", time.Now().UnixNano(), seq, sanitizeName(originalName))
	if err := os.WriteFile(filepath.Join(s.Root, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return PublicPrefix + "/" + name, nil
}

// Delete removes the file backing a previously returned relative URL.
// A missing file surfaces as an error the caller may choose to ignore.
func (s *DiskStore) Delete(ctx context.Context, relativeURL string) error {
	name := filepath.Base(strings.TrimPrefix(relativeURL, PublicPrefix+"/"))
	if name == "." || name == string(filepath.Separator) {
		return fmt.Errorf("malformed upload url %q", relativeURL)
	}
	if err := os.Remove(filepath.Join(s.Root, name)); err != nil {
		return fmt.Errorf("remove upload: %w", err)
	}
	return nil
}

// sanitizeName makes an upload name filesystem- and URL-safe: any path
// prefix is stripped and whitespace runs become underscores.
func sanitizeName(name string) string {
	name = filepath.Base(name)
	return whitespace.ReplaceAllString(name, "_")
}
