package embed

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/contrapair/internal/logging"
	"github.com/ppiankov/contrapair/internal/model"
	"github.com/ppiankov/contrapair/internal/worker"
)

// DefaultBatchSize is the number of texts sent per provider call
const DefaultBatchSize = 128

// BatchOptions configures a Batcher
type BatchOptions struct {
	// BatchSize is the maximum number of texts per provider call
	BatchSize int

	// Workers bounds the number of concurrent provider calls
	Workers int

	// MaxAttempts bounds tries per batch on transient errors
	MaxAttempts int

	// Limiter throttles provider calls per endpoint; nil disables throttling
	Limiter *worker.Limiter

	Logger *log.Logger
}

// Batcher splits large inputs into fixed-size batches and embeds them concurrently
type Batcher struct {
	provider  Provider
	batchSize int
	workers   int
	attempts  int
	limiter   *worker.Limiter
	logger    *log.Logger
}

// NewBatcher wraps p with batching
func NewBatcher(p Provider, opts BatchOptions) *Batcher {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	return &Batcher{
		provider:  p,
		batchSize: opts.BatchSize,
		workers:   opts.Workers,
		attempts:  opts.MaxAttempts,
		limiter:   opts.Limiter,
		logger:    logging.Component(opts.Logger, "embed"),
	}
}

// Name returns the wrapped provider name
func (b *Batcher) Name() string {
	return b.provider.Name()
}

// Model returns the wrapped provider model
func (b *Batcher) Model() string {
	return b.provider.Model()
}

// Endpoint returns the wrapped provider endpoint
func (b *Batcher) Endpoint() string {
	return EndpointOf(b.provider)
}

// Embed embeds texts batch by batch. The first failing batch cancels the rest.
func (b *Batcher) Embed(ctx context.Context, texts []string) ([]model.Embedding, error) {
	out := make([]model.Embedding, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	endpoint := b.Endpoint()
	batches := (len(texts) + b.batchSize - 1) / b.batchSize
	b.logger.Debug("embedding", "texts", len(texts), "batches", batches, "workers", b.workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for start := 0; start < len(texts); start += b.batchSize {
		end := min(start+b.batchSize, len(texts))

		g.Go(func() error {
			if b.limiter != nil && !b.limiter.Allow(endpoint) {
				b.logger.Debug("rate limited", "endpoint", endpoint, "start", start)
				if err := b.limiter.Wait(gctx, endpoint); err != nil {
					return fmt.Errorf("rate limit wait: %w", err)
				}
			}

			vecs, err := embedWithRetry(gctx, b.provider, texts[start:end], b.attempts)
			if err != nil {
				return fmt.Errorf("embed batch %d-%d: %w", start, end, err)
			}
			if err := checkBatch(end-start, vecs); err != nil {
				return fmt.Errorf("embed batch %d-%d: %w", start, end, err)
			}

			copy(out[start:end], vecs)
			b.logger.Debug("batch done", "start", start, "end", end)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Batches are checked individually; the whole run must share one dimensionality
	if err := checkBatch(len(texts), out); err != nil {
		return nil, err
	}
	return out, nil
}
