package feed

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotCached means the section has no cached feed yet, either because no
// fetch cycle has succeeded for it or because the file vanished between the
// request and the read. Both are served as temporarily unavailable.
var ErrNotCached = errors.New("feed not cached yet")

// Cache stores the latest annotated feed per section, one file per section
// under a single directory. The fetch cycle is the only writer; request
// handlers only read.
type Cache struct {
	dir string
}

func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	return &Cache{dir: dir}, nil
}

// Store replaces the cached feed for section. The content is written to a
// temporary file first and renamed into place, so a concurrent Load never
// sees a half-written feed.
func (c *Cache) Store(section string, content []byte) error {
	path := c.path(section)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, 0o600); err != nil {
		return fmt.Errorf("failed to write feed cache for %s: %w", section, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace feed cache for %s: %w", section, err)
	}
	return nil
}

// Load reads the cached feed for section fresh from disk.
func (c *Cache) Load(section string) ([]byte, error) {
	content, err := os.ReadFile(c.path(section))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotCached
		}
		return nil, fmt.Errorf("failed to read feed cache for %s: %w", section, err)
	}
	return content, nil
}

func (c *Cache) path(section string) string {
	return filepath.Join(c.dir, section+".ics")
}
