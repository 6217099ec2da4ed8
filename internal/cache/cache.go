package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"
)

// DefaultMaxEntries bounds a cache created without WithMaxEntries.
const DefaultMaxEntries = 8

// maxAttempts bounds how often a caller retries after the computation it
// joined was cancelled by another caller's context.
const maxAttempts = 3

// SourceSetKey identifies an input set, typically a digest of the source
// declarations and their file signatures.
type SourceSetKey string

// ComputeFunc produces the value for a missing key.
type ComputeFunc[V any] func(ctx context.Context) (V, error)

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits         int64 `json:"hits"`
	Misses       int64 `json:"misses"`
	Computations int64 `json:"computations"`
	Evictions    int64 `json:"evictions"`
	Entries      int   `json:"entries"`
	MaxEntries   int   `json:"max_entries"`
}

// HitRatio returns hits over total lookups.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

type entry[V any] struct {
	value    V
	storedAt time.Time
}

type options struct {
	name       string
	maxEntries int
	meter      metric.Meter
	now        func() time.Time
}

// Option configures a Cache.
type Option func(*options)

// WithMaxEntries bounds the number of stored results.
func WithMaxEntries(n int) Option {
	return func(o *options) { o.maxEntries = n }
}

// WithName labels the cache in metrics.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithMeter exports cache counters through meter.
func WithMeter(meter metric.Meter) Option {
	return func(o *options) { o.meter = meter }
}

// Cache is a bounded get-or-compute cache safe for concurrent use.
type Cache[V any] struct {
	mu         sync.RWMutex
	entries    map[SourceSetKey]entry[V]
	maxEntries int
	now        func() time.Time

	group   singleflight.Group
	stats   Stats
	metrics *metrics
}

// New creates a cache.
func New[V any](opts ...Option) (*Cache[V], error) {
	o := options{name: "default", maxEntries: DefaultMaxEntries, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxEntries <= 0 {
		return nil, fmt.Errorf("cache max entries must be positive, got %d", o.maxEntries)
	}

	c := &Cache[V]{
		entries:    make(map[SourceSetKey]entry[V]),
		maxEntries: o.maxEntries,
		now:        o.now,
	}
	if o.meter != nil {
		m, err := newMetrics(o.meter, o.name)
		if err != nil {
			return nil, err
		}
		c.metrics = m
	}
	return c, nil
}

// GetOrCompute returns the value stored under key, computing it with fn
// when absent. The boolean reports whether the value came from the cache.
// A failed computation stores nothing and its error is returned to every
// caller that shared it.
func (c *Cache[V]) GetOrCompute(ctx context.Context, key SourceSetKey, fn ComputeFunc[V]) (V, bool, error) {
	if v, ok := c.lookup(key); ok {
		c.record(ctx, func(s *Stats) { s.Hits++ }, c.metrics.hit)
		return v, true, nil
	}
	c.record(ctx, func(s *Stats) { s.Misses++ }, c.metrics.miss)

	var zero V
	for attempt := 1; ; attempt++ {
		ch := c.group.DoChan(string(key), func() (any, error) {
			if v, ok := c.lookup(key); ok {
				return v, nil
			}
			c.record(ctx, func(s *Stats) { s.Computations++ }, c.metrics.compute)
			v, err := fn(ctx)
			if err != nil {
				return nil, err
			}
			c.store(ctx, key, v)
			return v, nil
		})

		select {
		case <-ctx.Done():
			return zero, false, ctx.Err()
		case res := <-ch:
			if res.Err == nil {
				return res.Val.(V), false, nil
			}
			if isContextErr(res.Err) && ctx.Err() == nil && attempt < maxAttempts {
				// The shared computation ran under a caller that has gone away.
				continue
			}
			return zero, false, res.Err
		}
	}
}

// Get returns the value stored under key without computing it.
func (c *Cache[V]) Get(key SourceSetKey) (V, bool) {
	return c.lookup(key)
}

// Invalidate removes the value stored under key.
func (c *Cache[V]) Invalidate(key SourceSetKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Purge removes every stored value.
func (c *Cache[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[SourceSetKey]entry[V])
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.stats
	s.Entries = len(c.entries)
	s.MaxEntries = c.maxEntries
	return s
}

func (c *Cache[V]) lookup(key SourceSetKey) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e.value, ok
}

func (c *Cache[V]) store(ctx context.Context, key SourceSetKey, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldest(ctx)
	}
	c.entries[key] = entry[V]{value: v, storedAt: c.now()}
}

// evictOldest must be called with mu held.
func (c *Cache[V]) evictOldest(ctx context.Context) {
	var oldestKey SourceSetKey
	var oldestTime time.Time
	found := false

	for key, e := range c.entries {
		if !found || e.storedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = e.storedAt
			found = true
		}
	}

	if found {
		delete(c.entries, oldestKey)
		c.stats.Evictions++
		c.metrics.evict(ctx)
	}
}

func (c *Cache[V]) record(ctx context.Context, update func(*Stats), export func(context.Context)) {
	c.mu.Lock()
	update(&c.stats)
	c.mu.Unlock()
	export(ctx)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
