package cache

import "sync"

// IDCache maps session ids to the row id of their latest recording.
type IDCache struct {
	mu  sync.RWMutex
	ids map[string]uint
}

// NewIDCache creates a new IDCache
func NewIDCache() *IDCache {
	return &IDCache{
		ids: make(map[string]uint),
	}
}

// Get retrieves a row ID by key
func (c *IDCache) Get(key string) (uint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.ids[key]
	return id, ok
}

// Set stores a row ID by key
func (c *IDCache) Set(key string, id uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids[key] = id
}
