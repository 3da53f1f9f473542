// Package corpus provides access to the passage corpus metadata produced by the
// index build.
package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/threatdash/backend/internal/models"
)

// MetaCache holds the corpus metadata file in memory. It is loaded once at
// startup and can be refreshed explicitly after an index rebuild; callers are
// handed a copy of the slice so reads never race a refresh.
type MetaCache struct {
	path string

	mu    sync.RWMutex
	items []models.Passage
}

// NewMetaCache creates a cache over the metadata file at path without loading it
func NewMetaCache(path string) *MetaCache {
	return &MetaCache{path: path}
}

// Load reads the metadata file into memory
func (c *MetaCache) Load() error {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("failed to read corpus metadata %s: %w", c.path, err)
	}

	var items []models.Passage
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("failed to parse corpus metadata %s: %w", c.path, err)
	}

	c.mu.Lock()
	c.items = items
	c.mu.Unlock()
	return nil
}

// Refresh re-reads the metadata file, replacing the cached items on success.
// On failure the previously loaded items are kept.
func (c *MetaCache) Refresh() error {
	return c.Load()
}

// Items returns a copy of the cached passages
func (c *MetaCache) Items() []models.Passage {
	c.mu.RLock()
	defer c.mu.RUnlock()

	items := make([]models.Passage, len(c.items))
	copy(items, c.items)
	return items
}

// Len returns the number of cached passages
func (c *MetaCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
