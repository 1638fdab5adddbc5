package storage

import (
	"bytes"
	"sync"
)

// Cache holds encoded table documents keyed by table name. The file
// store uses it to skip disk writes for tables whose encoding did not
// change since the last flush. Users may plug in their own
// implementation; MemoryCache suffices for a single process.
type Cache interface {
	// Get retrieves the cached encoding for a table. The second return
	// is false when the table is not cached.
	Get(table string) ([]byte, bool)

	// Set stores the encoding for a table.
	Set(table string, encoded []byte)

	// Delete removes a table's cached encoding.
	Delete(table string)

	// Clear removes all cached encodings.
	Clear()
}

// MemoryCache is a Cache backed by a map.
type MemoryCache struct {
	mu sync.RWMutex
	m  map[string][]byte
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{m: make(map[string][]byte)}
}

// Get implements Cache.
func (c *MemoryCache) Get(table string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.m[table]
	return b, ok
}

// Set implements Cache.
func (c *MemoryCache) Set(table string, encoded []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[table] = encoded
}

// Delete implements Cache.
func (c *MemoryCache) Delete(table string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, table)
}

// Clear implements Cache.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m = make(map[string][]byte)
}

// unchanged reports whether the cached encoding for a table equals the
// given one.
func unchanged(c Cache, table string, encoded []byte) bool {
	if c == nil {
		return false
	}
	prev, ok := c.Get(table)
	return ok && bytes.Equal(prev, encoded)
}
