package aggregate

import (
	"sync"
	"time"

	"github.com/fentz26/taskclock/internal/clock"
)

// Cache is a TTL map. Entries expire ttl after they were stored, regardless
// of reads. Safe for concurrent use.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	clock   clock.Clock
	ttl     time.Duration
	entries map[K]cacheEntry[V]
}

type cacheEntry[V any] struct {
	value   V
	expires time.Time
}

// NewCache creates a cache. A nil clock uses the system clock.
func NewCache[K comparable, V any](c clock.Clock, ttl time.Duration) *Cache[K, V] {
	if c == nil {
		c = clock.System{}
	}
	return &Cache[K, V]{clock: c, ttl: ttl, entries: make(map[K]cacheEntry[V])}
}

// Get returns the live value for key.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if !c.clock.Now().Before(e.expires) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key and drops every expired entry, so the map never
// holds more than the keys written within the last ttl.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = cacheEntry[V]{value: value, expires: now.Add(c.ttl)}
}

// GetOrLoad returns the live value for key or calls load and stores its
// result. Errors from load are returned and not cached. Concurrent misses may
// each call load; the last one stored wins.
func (c *Cache[K, V]) GetOrLoad(key K, load func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	c.Set(key, v)
	return v, nil
}

// Len returns the number of stored entries, expired or not.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
