// Package cache holds extraction results in memory for a fixed time-to-live
package cache

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultTTL is how long a cached extraction result stays fresh
const DefaultTTL = 30 * time.Minute

// TTLCache is a map of values that expire TTL after they were stored.
// Expired entries are dropped when they are next read; nothing evicts in the background
// and there is no size bound.
type TTLCache[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
	ttl     time.Duration
	now     func() time.Time
}

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// Option configures a TTLCache
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock makes the cache read the time from now instead of time.Now
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates a cache whose entries live for ttl; a non-positive ttl selects DefaultTTL
func New[V any](ttl time.Duration, opts ...Option) *TTLCache[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TTLCache[V]{
		entries: make(map[string]entry[V]),
		ttl:     ttl,
		now:     o.now,
	}
}

// Get returns the value stored under key if it has not expired
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		delete(c.entries, key)
		return zero, false
	}
	return e.value, true
}

// Put stores value under key, replacing any previous entry
func (c *TTLCache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, storedAt: c.now()}
}

// Len reports how many entries are held, including expired ones not yet read
func (c *TTLCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// TTL returns the configured time-to-live
func (c *TTLCache[V]) TTL() time.Duration {
	return c.ttl
}

// SearchKey builds the key of a search result. Queries differing only in case or
// whitespace share a key.
func SearchKey(query string, page int) string {
	q := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	return "search:" + q + "_" + strconv.Itoa(page)
}

// AnimeInfoKey builds the key of an anime detail record
func AnimeInfoKey(id string) string {
	return "anime:" + strings.TrimSpace(id)
}
