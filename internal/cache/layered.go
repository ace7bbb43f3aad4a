package cache

import (
	"errors"
	"time"

	"github.com/ppiankov/contrapair/internal/model"
)

// LayeredCache checks memory first and falls back to disk
type LayeredCache struct {
	memory Cache
	disk   Cache
}

// NewLayeredCache creates a memory-over-disk cache
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return &LayeredCache{
		memory: NewMemoryCache(memoryTTL, 10*time.Minute),
		disk:   NewDiskCache(diskDir, diskTTL),
	}
}

// Get promotes disk hits into memory
func (c *LayeredCache) Get(key string) (model.Embedding, bool) {
	if vec, found := c.memory.Get(key); found {
		return vec, true
	}

	if vec, found := c.disk.Get(key); found {
		_ = c.memory.Set(key, vec)
		return vec, true
	}

	return nil, false
}

// Set writes both layers
func (c *LayeredCache) Set(key string, vec model.Embedding) error {
	if err := c.memory.Set(key, vec); err != nil {
		return err
	}
	return c.disk.Set(key, vec)
}

// Delete removes the key from both layers
func (c *LayeredCache) Delete(key string) error {
	return errors.Join(c.memory.Delete(key), c.disk.Delete(key))
}

// Clear empties both layers
func (c *LayeredCache) Clear() error {
	return errors.Join(c.memory.Clear(), c.disk.Clear())
}
