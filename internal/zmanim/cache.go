package zmanim

import (
	"sync"

	"github.com/golang/groupcache/lru"
)

// MinCacheSize is the smallest capacity accepted for a Cache.
const MinCacheSize = 4

// Cache is a bounded least-recently-used cache safe for concurrent use.
type Cache[V any] struct {
	mu  sync.Mutex
	lru *lru.Cache
}

// NewCache returns a cache holding at most size entries (at least MinCacheSize).
func NewCache[V any](size int) *Cache[V] {
	if size < MinCacheSize {
		size = MinCacheSize
	}
	return &Cache[V]{lru: lru.New(size)}
}

// Get returns the cached value for key.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	v, ok := c.lru.Get(key)
	if !ok {
		return zero, false
	}
	return v.(V), true
}

// Add stores value under key, evicting the least recently used entry when full.
func (c *Cache[V]) Add(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, value)
}

// Len reports the number of cached entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
