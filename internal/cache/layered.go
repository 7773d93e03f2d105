package cache

import (
	"errors"
	"time"
)

// LayeredCache fronts the disk cache with memory. Disk hits are copied into
// memory so a batch over similar dictations reads each file once.
type LayeredCache struct {
	memory *MemoryCache
	disk   *DiskCache
	stats  counters
}

// NewLayeredCache creates a memory cache over a disk cache in diskDir
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return &LayeredCache{
		memory: NewMemoryCache(memoryTTL, 10*time.Minute),
		disk:   NewDiskCache(diskDir, diskTTL),
	}
}

// Get checks memory, then disk
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, found := c.memory.Get(key); found {
		c.stats.record(true)
		return val, true
	}

	val, found := c.disk.Get(key)
	c.stats.record(found)
	if !found {
		return nil, false
	}
	_ = c.memory.Set(key, val, 0)
	return val, true
}

// Set writes through to both layers. A disk failure still leaves the entry
// in memory.
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	_ = c.memory.Set(key, value, ttl)
	return c.disk.Set(key, value, ttl)
}

// Delete drops the entry from both layers
func (c *LayeredCache) Delete(key string) error {
	return errors.Join(c.memory.Delete(key), c.disk.Delete(key))
}

// Clear empties both layers
func (c *LayeredCache) Clear() error {
	return errors.Join(c.memory.Clear(), c.disk.Clear())
}

// Stats returns lookup counts across both layers
func (c *LayeredCache) Stats() Stats {
	return c.stats.snapshot()
}
