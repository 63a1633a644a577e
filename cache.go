package okusno

import (
	"sync"
	"time"

	"github.com/ambrozic/okusno/content"
)

// ListCache is an in-memory cache of one entity type's listing with TTL.
// Mutating handlers invalidate it explicitly; the index watcher invalidates
// it on out-of-band file edits.
type ListCache struct {
	mu      sync.RWMutex
	recs    []content.Record
	fetched time.Time
	ttl     time.Duration
	engine  *content.Engine
}

// NewListCache creates a ListCache backed by the given engine.
func NewListCache(e *content.Engine, ttl time.Duration) *ListCache {
	return &ListCache{engine: e, ttl: ttl}
}

func (c *ListCache) valid() bool {
	return c.recs != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *ListCache) Invalidate() {
	c.mu.Lock()
	c.recs = nil
	c.mu.Unlock()
}

// List returns the cached listing, reloading from the engine when stale.
// It tries a read lock first; only takes a write lock if a reload is needed.
func (c *ListCache) List() ([]content.Record, error) {
	c.mu.RLock()
	if c.valid() {
		recs := c.recs
		c.mu.RUnlock()
		return recs, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid() {
		return c.recs, nil
	}
	recs, err := c.engine.List()
	if err != nil {
		return nil, err
	}
	c.recs = recs
	c.fetched = time.Now()
	return recs, nil
}
