// Package cache provides a bounded LRU cache whose entries also expire after a TTL.
//
// Every insert first sweeps expired entries, then lets the LRU drop the least
// recently accessed entry when the size cap is exceeded.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/simplelru"
)

// DefaultMaxEntries caps a cache built without WithMaxEntries.
const DefaultMaxEntries = 1024

type item[V any] struct {
	value     V
	expiresAt time.Time
}

type options struct {
	maxEntries int
	now        func() time.Time
}

// Option configures a Cache.
type Option func(*options)

// WithMaxEntries sets the entry cap.
func WithMaxEntries(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxEntries = n
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// Cache is safe for concurrent use.
type Cache[K comparable, V any] struct {
	mu  sync.Mutex
	lru *simplelru.LRU
	ttl time.Duration
	now func() time.Time
}

// New creates a cache with a default TTL applied when Set receives ttl <= 0.
func New[K comparable, V any](ttl time.Duration, opts ...Option) *Cache[K, V] {
	o := options{maxEntries: DefaultMaxEntries, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	// NewLRU only fails on a non-positive size, which WithMaxEntries rejects.
	lru, _ := simplelru.NewLRU(o.maxEntries, nil)

	return &Cache[K, V]{
		lru: lru,
		ttl: ttl,
		now: o.now,
	}
}

// Get returns the value and marks it recently used. Expired entries are removed and miss.
func (c *Cache[K, V]) Get(_ context.Context, key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	raw, ok := c.lru.Get(key)
	if !ok {
		return zero, false
	}

	it := raw.(item[V])
	if !c.now().Before(it.expiresAt) {
		c.lru.Remove(key)
		return zero, false
	}
	return it.value, true
}

// Set stores a value.
func (c *Cache[K, V]) Set(_ context.Context, key K, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.sweepExpired(now)
	c.lru.Add(key, item[V]{value: value, expiresAt: now.Add(ttl)})
}

// Delete removes a key.
func (c *Cache[K, V]) Delete(_ context.Context, key K) {
	c.mu.Lock()
	c.lru.Remove(key)
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included until swept.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Close drops every entry.
func (c *Cache[K, V]) Close() {
	c.mu.Lock()
	c.lru.Purge()
	c.mu.Unlock()
}

// sweepExpired must be called with mu held.
func (c *Cache[K, V]) sweepExpired(now time.Time) {
	for _, key := range c.lru.Keys() {
		raw, ok := c.lru.Peek(key)
		if !ok {
			continue
		}
		if !now.Before(raw.(item[V]).expiresAt) {
			c.lru.Remove(key)
		}
	}
}
