package cache

import (
	"context"
	"sync"
)

// MemoryCache is an in-process Cache used by tests and by local runs
// without a Redis instance.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string][]byte)}
}

// Set stores a copy of the value under key.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf := make([]byte, len(value))
	copy(buf, value)
	c.entries[key] = buf
	return nil
}

// Get returns the stored value; test helper, not part of the Cache
// contract (the service never reads back).
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Close is a no-op.
func (c *MemoryCache) Close() error {
	return nil
}
