// Package cache provides the TTL caches shared by the fetcher, the robots
// policy, and the resource store: capacity-bounded LRU eviction with
// per-entry expiry, safe for concurrent use.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache is a TTL cache with bounded capacity. The zero value is not usable;
// construct with New.
type Cache[K comparable, V any] struct {
	lru *expirable.LRU[K, V]
}

// New creates a cache holding at most capacity entries, each expiring ttl
// after insertion. A zero ttl disables expiry.
func New[K comparable, V any](capacity int, ttl time.Duration) *Cache[K, V] {
	return &Cache[K, V]{lru: expirable.NewLRU[K, V](capacity, nil, ttl)}
}

// Get returns the live value for key, if present.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	return c.lru.Get(key)
}

// Set stores a value. Returns true when the key was not previously present.
func (c *Cache[K, V]) Set(key K, value V) bool {
	_, existed := c.lru.Peek(key)
	c.lru.Add(key, value)
	return !existed
}

// Delete removes a key.
func (c *Cache[K, V]) Delete(key K) {
	c.lru.Remove(key)
}

// Len returns the number of live entries.
func (c *Cache[K, V]) Len() int {
	return c.lru.Len()
}

// Values returns all live values, oldest first.
func (c *Cache[K, V]) Values() []V {
	return c.lru.Values()
}

// Purge removes every entry.
func (c *Cache[K, V]) Purge() {
	c.lru.Purge()
}
