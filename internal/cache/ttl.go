// Package cache provides a generic, thread-safe, in-memory cache whose entries expire after a
// fixed time.  Expired entries are removed lazily when they are next looked up.
package cache

// ttl.go implements the TTL cache

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/andrewwphillips/linearql/internal/metric"
)

type (
	// TTL is a cache of values of type V keyed by string.  The zero TTL is not usable: use New.
	TTL[V any] struct {
		name    string // label for metrics
		ttl     time.Duration
		now     func() time.Time
		metrics *metric.Metrics

		mu    sync.RWMutex
		items map[string]entry[V]

		group singleflight.Group // coalesces concurrent loads of the same key
	}

	entry[V any] struct {
		value     V
		expiresAt time.Time
	}

	// Option configures a TTL cache
	Option func(*options)

	options struct {
		metrics *metric.Metrics
		now     func() time.Time
	}
)

// WithMetrics records hits, misses and evictions
func WithMetrics(m *metric.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithClock replaces time.Now (for tests)
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates a cache whose entries live for ttl.  A ttl <= 0 means entries never expire.
func New[V any](name string, ttl time.Duration, opts ...Option) *TTL[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &TTL[V]{
		name:    name,
		ttl:     ttl,
		now:     o.now,
		metrics: o.metrics,
		items:   make(map[string]entry[V]),
	}
}

// Get returns the value for key, or false if not present or expired
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	if ok && c.expired(e) {
		c.mu.Lock()
		// Check again as it may have been replaced since we released the read lock
		if current, stillThere := c.items[key]; stillThere && c.expired(current) {
			delete(c.items, key)
			c.metrics.CacheEviction(c.name)
		}
		c.mu.Unlock()
		ok = false
	}
	if !ok {
		c.metrics.CacheMiss(c.name)
		var zero V
		return zero, false
	}
	c.metrics.CacheHit(c.name)
	return e.value, true
}

// Set stores value under key, replacing any existing entry and restarting its lifetime
func (c *TTL[V]) Set(key string, value V) {
	e := entry[V]{value: value}
	if c.ttl > 0 {
		e.expiresAt = c.now().Add(c.ttl)
	}
	c.mu.Lock()
	c.items[key] = e
	c.mu.Unlock()
}

// Delete removes key, returning true if it was present
func (c *TTL[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	delete(c.items, key)
	return ok
}

// Clear removes all entries
func (c *TTL[V]) Clear() {
	c.mu.Lock()
	c.items = make(map[string]entry[V])
	c.mu.Unlock()
}

// Len returns the number of entries, including any that have expired but not yet been removed
func (c *TTL[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// GetOrLoad returns the cached value for key or, if there is none, calls load and caches its result.
// Concurrent calls for the same key share a single call of load.  Errors are not cached.
func (c *TTL[V]) GetOrLoad(key string, load func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	r, err, _ := c.group.Do(key, func() (interface{}, error) {
		// another caller may have loaded it while we were waiting
		c.mu.RLock()
		e, ok := c.items[key]
		c.mu.RUnlock()
		if ok && !c.expired(e) {
			return e.value, nil
		}

		v, err := load()
		if err != nil {
			return v, err
		}
		c.Set(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return r.(V), nil
}

func (c *TTL[V]) expired(e entry[V]) bool {
	return !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt)
}
