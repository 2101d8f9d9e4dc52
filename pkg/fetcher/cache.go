package fetcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"briefing-trends/pkg/artifact"
)

// Cache stores response bodies keyed by exact URL. Entries never expire.
// Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, url string) ([]byte, bool, error)
	Set(ctx context.Context, url string, body []byte) error
}

// CacheKey derives the storage key for url.
func CacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// DiskCache keeps one file per URL under a directory. Entries are written
// through a temp file and rename, so concurrent fetchers never observe a
// partially written body.
type DiskCache struct {
	dir string
}

// NewDiskCache creates the cache directory if needed.
func NewDiskCache(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) path(url string) string {
	return filepath.Join(c.dir, CacheKey(url))
}

// Get returns the cached body for url.
func (c *DiskCache) Get(_ context.Context, url string) ([]byte, bool, error) {
	body, err := os.ReadFile(c.path(url))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry for %s: %w", url, err)
	}
	return body, true, nil
}

// Set stores body for url, replacing any previous entry.
func (c *DiskCache) Set(_ context.Context, url string, body []byte) error {
	return artifact.WriteFile(c.path(url), body)
}
