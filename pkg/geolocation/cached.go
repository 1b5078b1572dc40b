package geolocation

import (
	"context"
	"time"

	"github.com/dmitrymomot/sessiontrack/pkg/cache"
)

// CachedLocator remembers successful lookups per IP. Failures are not cached
// so a recovered upstream is used on the next call.
type CachedLocator struct {
	next  Locator
	cache *cache.LRU[string, string]
}

// Cached wraps next with an LRU of the given size and entry lifetime.
// A non-positive size disables caching and returns a pass-through wrapper.
func Cached(next Locator, size int, ttl time.Duration, opts ...cache.Option) *CachedLocator {
	c := &CachedLocator{next: next}
	if size > 0 {
		c.cache = cache.New[string, string](size, ttl, opts...)
	}
	return c
}

func (c *CachedLocator) Locate(ctx context.Context, ip string) (string, error) {
	if c.cache == nil {
		return c.next.Locate(ctx, ip)
	}
	if loc, ok := c.cache.Get(ip); ok {
		return loc, nil
	}
	loc, err := c.next.Locate(ctx, ip)
	if err != nil {
		return "", err
	}
	c.cache.Set(ip, loc)
	return loc, nil
}
