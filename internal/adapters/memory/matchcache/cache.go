package matchcache

import (
	"context"
	"sync"
	"time"

	"github.com/fast-shipment/matching-api/internal/ports/out/matchcache"
)

type entry struct {
	suggestions []matchcache.CachedSuggestion
	expiresAt   time.Time
}

// Cache is an in-memory TTL implementation of matchcache.Cache.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]entry), now: time.Now}
}

// SetNowForTest overrides the clock for expiry tests.
func (c *Cache) SetNowForTest(now func() time.Time) {
	if now != nil {
		c.now = now
	}
}

func (c *Cache) Get(ctx context.Context, key string) ([]matchcache.CachedSuggestion, bool, error) {
	_ = ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return append([]matchcache.CachedSuggestion(nil), e.suggestions...), true, nil
}

func (c *Cache) Put(ctx context.Context, key string, ss []matchcache.CachedSuggestion, ttl time.Duration) error {
	_ = ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{
		suggestions: append([]matchcache.CachedSuggestion(nil), ss...),
		expiresAt:   c.now().Add(ttl),
	}
	return nil
}

func (c *Cache) Invalidate(ctx context.Context, key string) error {
	_ = ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}
