package cache

import (
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Stats counts lookups since the cache was created
type Stats struct {
	Hits   int64
	Misses int64
}

// StatsReporter is implemented by caches that count lookups
type StatsReporter interface {
	Stats() Stats
}

type counters struct {
	hits, misses atomic.Int64
}

func (c *counters) record(found bool) {
	if found {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
}

func (c *counters) snapshot() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// MemoryCache keeps completion text in process memory. Entries expire after
// their TTL and are swept every cleanup interval.
type MemoryCache struct {
	items *gocache.Cache
	stats counters
}

// NewMemoryCache creates a memory cache whose entries live for ttl
func NewMemoryCache(ttl, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{items: gocache.New(ttl, cleanupInterval)}
}

// Get returns the completion stored under key
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	val, found := c.items.Get(key)
	data, ok := val.([]byte)
	c.stats.record(found && ok)
	if !found || !ok {
		return nil, false
	}
	return data, true
}

// Set stores a completion; a zero ttl uses the cache default
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	c.items.Set(key, value, ttl)
	return nil
}

// Delete drops one entry
func (c *MemoryCache) Delete(key string) error {
	c.items.Delete(key)
	return nil
}

// Clear drops every entry
func (c *MemoryCache) Clear() error {
	c.items.Flush()
	return nil
}

// Len returns the number of unexpired entries
func (c *MemoryCache) Len() int {
	return c.items.ItemCount()
}

// Stats returns lookup counts
func (c *MemoryCache) Stats() Stats {
	return c.stats.snapshot()
}
