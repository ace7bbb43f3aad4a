// Package embed turns statement text into vectors for the similarity engine.
package embed

import (
	"context"
	"errors"
	"fmt"

	"github.com/ppiankov/contrapair/internal/model"
)

var (
	// ErrCountMismatch means a provider returned a different number of vectors than texts
	ErrCountMismatch = errors.New("embedding count mismatch")

	// ErrDimensionMismatch means vectors within one batch have different lengths
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Provider embeds a batch of texts.
// On success the result is index-aligned with texts.
type Provider interface {
	// Name returns the provider name
	Name() string

	// Model returns the embedding model identifier
	Model() string

	// Embed returns one vector per text
	Embed(ctx context.Context, texts []string) ([]model.Embedding, error)
}

// Endpointer is implemented by providers that talk to a remote endpoint.
// The endpoint is used as the rate limiting key.
type Endpointer interface {
	Endpoint() string
}

// Config holds embedding provider configuration
type Config struct {
	// Provider name: "openai", "ollama", "hash"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI
	APIKey string

	// BaseURL for custom endpoints
	BaseURL string

	// Timeout for API requests in seconds
	Timeout int

	// Dimensions of the hash provider
	Dimensions int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
}

// ConfigFromModel converts model.EmbeddingConfig to embed.Config
func ConfigFromModel(c model.EmbeddingConfig) Config {
	return Config{
		Provider:   c.Provider,
		Model:      c.Model,
		APIKey:     c.APIKey,
		BaseURL:    c.BaseURL,
		Timeout:    c.Timeout,
		Dimensions: c.Dimensions,
		HTTPProxy:  c.HTTPProxy,
		HTTPSProxy: c.HTTPSProxy,
	}
}

// EndpointOf returns the rate limiting key for p
func EndpointOf(p Provider) string {
	if e, ok := p.(Endpointer); ok {
		return e.Endpoint()
	}
	return p.Name()
}

// checkBatch verifies count and uniform dimensionality of a provider response
func checkBatch(texts int, vecs []model.Embedding) error {
	if len(vecs) != texts {
		return fmt.Errorf("%w: %d texts, %d vectors", ErrCountMismatch, texts, len(vecs))
	}
	for i := 1; i < len(vecs); i++ {
		if len(vecs[i]) != len(vecs[0]) {
			return fmt.Errorf("%w: vector %d has %d dimensions, vector 0 has %d", ErrDimensionMismatch, i, len(vecs[i]), len(vecs[0]))
		}
	}
	return nil
}
