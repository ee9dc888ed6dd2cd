// internal/app/system/cache/cache.go

// Package cache is the in-process cache shared by dashboard statistics,
// subscription status and circulation fees. It wraps ristretto with a
// fixed cost of one per entry, so MaxItems bounds the number of values.
package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache is a bounded TTL cache keyed by string.
type Cache struct {
	c *ristretto.Cache[string, any]

	// keys tracks live keys so callers can drop a whole prefix
	// (one organization's statistics, one building's fees).
	mu   sync.Mutex
	keys map[string]struct{}
}

// New builds a cache that holds at most maxItems entries.
func New(maxItems int64) (*Cache, error) {
	if maxItems <= 0 {
		maxItems = 10_000
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, any]{
		NumCounters: maxItems * 10,
		MaxCost:     maxItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c, keys: make(map[string]struct{})}, nil
}

// Get returns the cached value for key.
func (c *Cache) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	return c.c.Get(key)
}

// Set stores value for ttl. The write is flushed before Set returns so a
// following Get observes it.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if c == nil {
		return
	}
	if c.c.SetWithTTL(key, value, 1, ttl) {
		c.c.Wait()
		c.mu.Lock()
		c.keys[key] = struct{}{}
		c.mu.Unlock()
	}
}

// Del removes key.
func (c *Cache) Del(key string) {
	if c == nil {
		return
	}
	c.c.Del(key)
	c.mu.Lock()
	delete(c.keys, key)
	c.mu.Unlock()
}

// DelPrefix removes every key starting with prefix.
func (c *Cache) DelPrefix(prefix string) int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	var drop []string
	for k := range c.keys {
		if strings.HasPrefix(k, prefix) {
			drop = append(drop, k)
		}
	}
	for _, k := range drop {
		delete(c.keys, k)
	}
	c.mu.Unlock()

	for _, k := range drop {
		c.c.Del(k)
	}
	return len(drop)
}

// Close releases the cache's background goroutines.
func (c *Cache) Close() {
	if c == nil {
		return
	}
	c.c.Close()
}
