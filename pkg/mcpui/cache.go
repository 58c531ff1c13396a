package mcpui

import (
	"context"
	"errors"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/goliatone/go-treads/pkg/resolver"
)

type cacheEntry struct {
	src   resolver.Source
	found bool
}

// CachedLookup memoises another lookup for a fixed TTL. Hits and misses are
// cached; errors are not.
type CachedLookup struct {
	next  resolver.Lookup
	cache *cache.Cache
}

var _ resolver.Lookup = (*CachedLookup)(nil)

// NewCachedLookup wraps next with a cache whose entries expire after ttl.
func NewCachedLookup(next resolver.Lookup, ttl time.Duration) *CachedLookup {
	return &CachedLookup{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

// Lookup serves uri from the cache or delegates to the wrapped lookup.
func (c *CachedLookup) Lookup(ctx context.Context, uri string) (resolver.Source, error) {
	if cached, ok := c.cache.Get(uri); ok {
		entry := cached.(cacheEntry)
		if !entry.found {
			return resolver.Source{}, resolver.ErrNotFound
		}
		return entry.src, nil
	}

	src, err := c.next.Lookup(ctx, uri)
	switch {
	case err == nil:
		c.cache.SetDefault(uri, cacheEntry{src: src, found: true})
	case errors.Is(err, resolver.ErrNotFound):
		c.cache.SetDefault(uri, cacheEntry{})
	}
	return src, err
}

// Flush drops every cached entry.
func (c *CachedLookup) Flush() {
	c.cache.Flush()
}
