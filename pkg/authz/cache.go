package authz

import (
	"context"
	"sync"
	"time"
)

// DefaultCacheTTL is the default time-to-live for cached admin checks.
const DefaultCacheTTL = 10 * time.Second

// cacheEntry stores a cached check result with its expiration time.
type cacheEntry struct {
	allowed   bool
	expiresAt time.Time
}

// CachedChecker wraps another Checker with a short-lived in-memory cache so
// that bursts of admin-gated requests do not hit the profiles table per
// request. Revoking an admin flag takes effect within the TTL.
type CachedChecker struct {
	inner Checker
	ttl   time.Duration
	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// NewCachedChecker creates a CachedChecker that wraps inner with the given
// TTL. A non-positive TTL falls back to DefaultCacheTTL.
func NewCachedChecker(inner Checker, ttl time.Duration) *CachedChecker {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedChecker{
		inner: inner,
		ttl:   ttl,
		cache: make(map[string]cacheEntry),
	}
}

// IsAdmin checks the cache first and delegates to the inner Checker on miss.
func (c *CachedChecker) IsAdmin(ctx context.Context, userID string) (bool, error) {
	c.mu.RLock()
	entry, ok := c.cache[userID]
	c.mu.RUnlock()

	if ok && time.Now().Before(entry.expiresAt) {
		return entry.allowed, nil
	}

	allowed, err := c.inner.IsAdmin(ctx, userID)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	c.cache[userID] = cacheEntry{
		allowed:   allowed,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()

	return allowed, nil
}
