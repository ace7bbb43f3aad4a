package embed

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ppiankov/contrapair/internal/cache"
	"github.com/ppiankov/contrapair/internal/model"
	"github.com/ppiankov/contrapair/internal/worker"
)

// NewProvider creates a bare embedding provider based on configuration
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "hash":
		return NewHashProvider(config.Dimensions), nil

	case "":
		return nil, fmt.Errorf("no embedding provider configured (supported: openai, ollama, hash)")

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: openai, ollama, hash)", config.Provider)
	}
}

// NewFromConfig builds the full provider stack for a run:
// the configured provider, batched and rate limited, behind the embedding cache when enabled.
func NewFromConfig(cfg *model.Config, logger *log.Logger) (Provider, error) {
	base, err := NewProvider(ConfigFromModel(cfg.Embedding))
	if err != nil {
		return nil, err
	}

	var limiter *worker.Limiter
	if cfg.RateLimiting.RequestsPerSecond > 0 {
		limiter = worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
		// The hash provider runs in-process and is never throttled
		if _, remote := base.(Endpointer); !remote {
			limiter.SetRate(EndpointOf(base), math.Inf(1), cfg.RateLimiting.BurstSize)
		}
	}

	var p Provider = NewBatcher(base, BatchOptions{
		BatchSize: cfg.Embedding.BatchSize,
		Workers:   cfg.Concurrency.EmbedWorkers,
		Limiter:   limiter,
		Logger:    logger,
	})

	if cfg.Cache.Enabled {
		var c cache.Cache
		if cfg.Cache.Dir != "" {
			c = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
		} else {
			c = cache.NewMemoryCache(cfg.Cache.MemoryTTL, 10*time.Minute)
		}
		p = NewCachedProvider(p, c, logger)
	}

	return p, nil
}
