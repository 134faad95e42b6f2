package cache

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// PatternCache remembers the selector that last produced each field for a page template.
// Entries expire after the configured TTL so a redesigned site is relearned.
type PatternCache struct {
	cache *gocache.Cache
	mu    sync.Mutex // guards read-modify-write of a template entry
}

// NewPatternCache creates a new pattern cache
func NewPatternCache(defaultTTL time.Duration, cleanupInterval time.Duration) *PatternCache {
	return &PatternCache{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Selectors returns a copy of the cached field -> selector table for a template
func (c *PatternCache) Selectors(key string) (map[string]string, bool) {
	val, found := c.cache.Get(key)
	if !found {
		return nil, false
	}
	stored := val.(map[string]string)
	out := make(map[string]string, len(stored))
	for field, sel := range stored {
		out[field] = sel
	}
	return out, true
}

// Selector returns the cached selector for one field of a template
func (c *PatternCache) Selector(key, field string) (string, bool) {
	selectors, ok := c.Selectors(key)
	if !ok {
		return "", false
	}
	sel, ok := selectors[field]
	return sel, ok
}

// Put records the selector that produced a field, refreshing the template's TTL
func (c *PatternCache) Put(key, field, selector string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	selectors, _ := c.Selectors(key)
	if selectors == nil {
		selectors = make(map[string]string)
	}
	selectors[field] = selector
	c.cache.Set(key, selectors, gocache.DefaultExpiration)
}

// Forget drops one field from a template, used when a cached selector stops matching
func (c *PatternCache) Forget(key, field string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	selectors, ok := c.Selectors(key)
	if !ok {
		return
	}
	delete(selectors, field)
	c.cache.Set(key, selectors, gocache.DefaultExpiration)
}

// Len returns the number of cached templates
func (c *PatternCache) Len() int {
	return c.cache.ItemCount()
}

// Clear removes all templates
func (c *PatternCache) Clear() {
	c.cache.Flush()
}
