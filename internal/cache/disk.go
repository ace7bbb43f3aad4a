package cache

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/contrapair/internal/model"
)

// DiskCache persists embeddings as one gob file per key
type DiskCache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// NewDiskCache creates a disk cache rooted at dir
func NewDiskCache(dir string, ttl time.Duration) *DiskCache {
	return &DiskCache{
		dir: dir,
		ttl: ttl,
		now: time.Now,
	}
}

type diskEntry struct {
	Vector    []float32
	ExpiresAt time.Time
}

// Get reads a vector, discarding expired or unreadable entries
func (c *DiskCache) Get(key string) (model.Embedding, bool) {
	path := c.path(key)

	f, err := os.Open(path)
	if err != nil {
		return nil, false
	}

	var entry diskEntry
	err = gob.NewDecoder(f).Decode(&entry)
	_ = f.Close()
	if err != nil {
		_ = os.Remove(path)
		return nil, false
	}

	if c.ttl > 0 && c.now().After(entry.ExpiresAt) {
		_ = os.Remove(path)
		return nil, false
	}

	return model.Embedding(entry.Vector), true
}

// Set writes a vector atomically
func (c *DiskCache) Set(key string, vec model.Embedding) (err error) {
	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	entry := diskEntry{Vector: []float32(vec)}
	if c.ttl > 0 {
		entry.ExpiresAt = c.now().Add(c.ttl)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".entry-*")
	if err != nil {
		return fmt.Errorf("create cache file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := gob.NewEncoder(tmp).Encode(entry); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename cache file: %w", err)
	}
	return nil
}

// Delete removes a vector; a missing entry is not an error
func (c *DiskCache) Delete(key string) error {
	err := os.Remove(c.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Clear removes the whole cache directory
func (c *DiskCache) Clear() error {
	return os.RemoveAll(c.dir)
}

// path shards entries by the first two hex characters of the key
func (c *DiskCache) path(key string) string {
	shard := "00"
	if len(key) >= 2 {
		shard = key[:2]
	}
	return filepath.Join(c.dir, shard, key+".vec")
}
