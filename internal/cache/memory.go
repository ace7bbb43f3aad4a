package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ppiankov/contrapair/internal/model"
)

// MemoryCache keeps embeddings in process memory with expiry
type MemoryCache struct {
	cache *gocache.Cache
}

// NewMemoryCache creates a memory cache; expired entries are purged every cleanupInterval
func NewMemoryCache(ttl time.Duration, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{
		cache: gocache.New(ttl, cleanupInterval),
	}
}

// Get returns a copy of the cached vector
func (c *MemoryCache) Get(key string) (model.Embedding, bool) {
	val, found := c.cache.Get(key)
	if !found {
		return nil, false
	}
	vec, ok := val.(model.Embedding)
	if !ok {
		return nil, false
	}
	return clone(vec), true
}

// Set stores a copy of vec with the default TTL
func (c *MemoryCache) Set(key string, vec model.Embedding) error {
	c.cache.SetDefault(key, clone(vec))
	return nil
}

// Delete removes a vector
func (c *MemoryCache) Delete(key string) error {
	c.cache.Delete(key)
	return nil
}

// Clear removes every vector
func (c *MemoryCache) Clear() error {
	c.cache.Flush()
	return nil
}

// Len returns the number of cached vectors, including expired ones not yet purged
func (c *MemoryCache) Len() int {
	return c.cache.ItemCount()
}
