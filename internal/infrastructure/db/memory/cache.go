// Package memory provides an in-memory twin of the Redis credential cache.
// It backs tests and acts as a degraded-mode fallback when Redis is
// unreachable at startup.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"
)

type entry struct {
	value     string
	expiresAt time.Time
}

// Cache is a TTL key-value map, safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry

	// now is swappable in tests to drive TTL expiry deterministically.
	now func() time.Time
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]entry), now: time.Now}
}

// WithClock replaces the cache's clock. Intended for tests.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

func (c *Cache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().After(e.expiresAt) {
		return "", false, nil
	}
	return e.value, true, nil
}

func (c *Cache) SetWithExpiry(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	c.entries[key] = entry{value: value, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

func (c *Cache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	c.mu.Unlock()
	return nil
}

func (c *Cache) DeleteByPrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
	return nil
}

// Len reports the number of live entries. Expired entries that have not been
// touched still count; they are evicted lazily on Get.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
