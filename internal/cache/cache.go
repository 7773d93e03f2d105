package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/PACSamericana/poly/internal/model"
)

// Cache defines the interface for caching model completions
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// CompletionKey generates a cache key for one model exchange. Every part that
// can change the reply (provider, model, prompts, JSON mode) must be passed.
func CompletionKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return "poly:v1:" + hex.EncodeToString(h.Sum(nil))
}

// New builds the configured cache, or nil when caching is disabled
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Dir == "" {
		return NewMemoryCache(cfg.MemoryTTL, 10*time.Minute)
	}
	return NewLayeredCache(cfg.MemoryTTL, cfg.Dir, cfg.DiskTTL)
}
