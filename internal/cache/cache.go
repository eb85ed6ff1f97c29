package cache

import (
	"sync"
	"time"
)

// entry holds a cached value with expiration
type entry[V any] struct {
	value      V
	expiration time.Time
}

// TTLCache is a thread-safe in-memory cache with per-entry TTL
type TTLCache[V any] struct {
	mu    sync.RWMutex
	items map[string]entry[V]
	now   func() time.Time
}

// NewTTLCache creates a new cache instance
func NewTTLCache[V any]() *TTLCache[V] {
	return &TTLCache[V]{
		items: make(map[string]entry[V]),
		now:   time.Now,
	}
}

// Get retrieves a value if it exists and hasn't expired
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, exists := c.items[key]
	if !exists || !c.now().Before(e.expiration) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores a value with the given TTL
func (c *TTLCache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = entry[V]{
		value:      value,
		expiration: c.now().Add(ttl),
	}
}

// Delete removes a key
func (c *TTLCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Clear removes all entries
func (c *TTLCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]entry[V])
}
