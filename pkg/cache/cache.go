// Package cache provides the time-boxed page-level cache layered outside
// the aggregate core: an in-memory TTL cache with max-size eviction, plus
// HTTP middleware that applies it to listing GETs. Aggregate loads
// themselves are never cached; each one is assembled fresh per request.
package cache

import (
	"os"
	"strconv"
	"sync"
	"time"
)

// entry holds a cached response body with its expiry and insertion time.
type entry struct {
	value      []byte
	expiresAt  time.Time
	insertedAt time.Time
}

// TTLCache is a thread-safe in-memory cache with TTL and max-size
// eviction. At capacity the oldest entry by insertion time is evicted;
// expired entries are lazily dropped on Get.
type TTLCache struct {
	mu      sync.Mutex
	items   map[string]*entry
	maxSize int
	ttl     time.Duration
}

// Config controls the listing cache.
type Config struct {
	Enabled bool          // Default true.
	MaxSize int           // Max cached responses. Default 256.
	TTL     time.Duration // Entry lifetime. Default 30s.
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled: true,
		MaxSize: 256,
		TTL:     30 * time.Second,
	}
}

// ConfigFromEnv loads config from environment variables:
// SCORECARD_CACHE_ENABLED, SCORECARD_CACHE_MAX_SIZE,
// SCORECARD_CACHE_TTL_SECONDS.
func ConfigFromEnv() *Config {
	cfg := DefaultConfig()

	if v := os.Getenv("SCORECARD_CACHE_ENABLED"); v != "" {
		cfg.Enabled, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("SCORECARD_CACHE_MAX_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxSize = n
		}
	}
	if v := os.Getenv("SCORECARD_CACHE_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TTL = time.Duration(n) * time.Second
		}
	}

	return cfg
}

// New creates a TTLCache from the configuration.
func New(cfg *Config) *TTLCache {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	maxSize := cfg.MaxSize
	if maxSize < 1 {
		maxSize = 1
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &TTLCache{
		items:   make(map[string]*entry, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Get retrieves a cached value by key. Returns (nil, false) if the key is
// missing or expired.
func (c *TTLCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.items, key)
		return nil, false
	}
	return e.value, true
}

// Set stores a value, evicting the oldest entry when at capacity.
func (c *TTLCache) Set(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if _, ok := c.items[key]; !ok && len(c.items) >= c.maxSize {
		c.evictOldest()
	}
	c.items[key] = &entry{
		value:      value,
		expiresAt:  now.Add(c.ttl),
		insertedAt: now,
	}
}

// Invalidate drops every cached entry. Mutation paths call this so a
// reorder or archive is visible on the next listing read.
func (c *TTLCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*entry, c.maxSize)
}

// Len returns the number of cached entries, expired or not.
func (c *TTLCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *TTLCache) evictOldest() {
	var oldestKey string
	var oldestAt time.Time
	for k, e := range c.items {
		if oldestKey == "" || e.insertedAt.Before(oldestAt) {
			oldestKey = k
			oldestAt = e.insertedAt
		}
	}
	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}
