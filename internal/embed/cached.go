package embed

import (
	"context"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/ppiankov/contrapair/internal/cache"
	"github.com/ppiankov/contrapair/internal/logging"
	"github.com/ppiankov/contrapair/internal/model"
)

// CachedProvider serves repeated texts from a cache and forwards misses
type CachedProvider struct {
	inner  Provider
	cache  cache.Cache
	logger *log.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCachedProvider wraps inner with c
func NewCachedProvider(inner Provider, c cache.Cache, logger *log.Logger) *CachedProvider {
	return &CachedProvider{
		inner:  inner,
		cache:  c,
		logger: logging.Component(logger, "cache"),
	}
}

// Name returns the wrapped provider name
func (p *CachedProvider) Name() string {
	return p.inner.Name()
}

// Model returns the wrapped provider model
func (p *CachedProvider) Model() string {
	return p.inner.Model()
}

// Endpoint returns the wrapped provider endpoint
func (p *CachedProvider) Endpoint() string {
	return EndpointOf(p.inner)
}

// Stats returns cache hits and misses since creation
func (p *CachedProvider) Stats() (hits, misses int64) {
	return p.hits.Load(), p.misses.Load()
}

// Embed looks up every text and embeds each distinct missing text once
func (p *CachedProvider) Embed(ctx context.Context, texts []string) ([]model.Embedding, error) {
	out := make([]model.Embedding, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	keys := make([]string, len(texts))
	pending := make(map[string][]int)
	var missTexts []string
	var missKeys []string

	for i, text := range texts {
		key := cache.Key(p.inner.Name(), p.inner.Model(), text)
		keys[i] = key

		if vec, ok := p.cache.Get(key); ok {
			out[i] = vec
			continue
		}
		if _, seen := pending[key]; !seen {
			missTexts = append(missTexts, text)
			missKeys = append(missKeys, key)
		}
		pending[key] = append(pending[key], i)
	}

	hits := len(texts) - countIndices(pending)
	p.hits.Add(int64(hits))
	p.misses.Add(int64(len(missTexts)))
	p.logger.Debug("lookup", "texts", len(texts), "hits", hits, "to_embed", len(missTexts))

	if len(missTexts) > 0 {
		vecs, err := p.inner.Embed(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		if err := checkBatch(len(missTexts), vecs); err != nil {
			return nil, err
		}

		for j, vec := range vecs {
			key := missKeys[j]
			if err := p.cache.Set(key, vec); err != nil {
				p.logger.Warn("cache write failed", "err", err)
			}
			for _, i := range pending[key] {
				out[i] = vec
			}
		}
	}

	// Cached vectors from an older run may disagree with fresh ones
	if err := checkBatch(len(texts), out); err != nil {
		return nil, err
	}
	return out, nil
}

func countIndices(m map[string][]int) int {
	n := 0
	for _, idx := range m {
		n += len(idx)
	}
	return n
}
