// Package cache provides an in-process key/value store whose entries expire
// after a fixed time-to-live.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL is a concurrency-safe map with per-entry expiry. Expired entries are
// invisible to readers immediately and removed lazily on access or by the
// periodic sweep.
type TTL[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]entry[V]
	ttl     time.Duration
	now     func() time.Time

	stop      chan struct{}
	closeOnce sync.Once
}

// Option configures a TTL cache
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates a cache with the given default ttl. A positive sweepInterval
// starts a goroutine that evicts expired entries until Close is called.
func New[K comparable, V any](ttl, sweepInterval time.Duration, opts ...Option) *TTL[K, V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	c := &TTL[K, V]{
		entries: make(map[K]entry[V]),
		ttl:     ttl,
		now:     o.now,
		stop:    make(chan struct{}),
	}

	if sweepInterval > 0 {
		go c.sweepLoop(sweepInterval)
	}

	return c
}

// Set stores value under key with the default ttl, replacing any previous entry
func (c *TTL[K, V]) Set(key K, value V) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value under key with an explicit ttl
func (c *TTL[K, V]) SetWithTTL(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(ttl)}
}

// Get returns the live value for key
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.liveLocked(key)
	if !ok {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Delete removes key. Deleting a missing key is a no-op.
func (c *TTL[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// CompareAndDelete removes key only if it is live and match accepts its
// value. The check and the removal happen under one lock, so at most one
// caller can consume a given entry.
func (c *TTL[K, V]) CompareAndDelete(key K, match func(V) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.liveLocked(key)
	if !ok || !match(e.value) {
		return false
	}
	delete(c.entries, key)
	return true
}

// Len returns the number of stored entries, including expired ones not yet swept
func (c *TTL[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Sweep removes every expired entry
func (c *TTL[K, V]) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// Close stops the sweep goroutine. The cache stays usable.
func (c *TTL[K, V]) Close() {
	c.closeOnce.Do(func() { close(c.stop) })
}

// liveLocked returns the entry for key, evicting it if expired. Caller holds mu.
func (c *TTL[K, V]) liveLocked(key K) (entry[V], bool) {
	e, ok := c.entries[key]
	if !ok {
		return entry[V]{}, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return entry[V]{}, false
	}
	return e, true
}

func (c *TTL[K, V]) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-c.stop:
			return
		}
	}
}
