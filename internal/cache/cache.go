package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/ppiankov/commentradar/internal/model"
)

// Cache stores fetched response bodies by key
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// CacheKey generates a cache key from a request URL
func CacheKey(url string) string {
	hash := sha256.Sum256([]byte(url))
	return "commentradar:v1:" + hex.EncodeToString(hash[:])
}

// New builds the response cache described by cfg. It returns nil when
// caching is disabled; an empty Dir keeps entries in memory only.
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled || cfg.TTL <= 0 {
		return nil
	}
	if cfg.Dir == "" {
		return NewMemoryCache(cfg.TTL, 2*cfg.TTL)
	}
	return NewLayeredCache(cfg.TTL, cfg.Dir, cfg.TTL)
}
