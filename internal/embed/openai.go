package embed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/contrapair/internal/model"
	"github.com/ppiankov/contrapair/internal/util"
)

const defaultOpenAIEndpoint = "https://api.openai.com/v1"

// OpenAIProvider embeds texts with the OpenAI embeddings API
type OpenAIProvider struct {
	client   *openai.Client
	config   Config
	endpoint string
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if config.Model == "" {
		config.Model = string(openai.SmallEmbedding3)
	}

	timeout := time.Duration(config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	endpoint := defaultOpenAIEndpoint
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
		endpoint = config.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(config.HTTPProxy, config.HTTPSProxy),
		},
	}

	return &OpenAIProvider{
		client:   openai.NewClientWithConfig(clientConfig),
		config:   config,
		endpoint: endpoint,
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Model returns the embedding model
func (p *OpenAIProvider) Model() string {
	return p.config.Model
}

// Endpoint returns the API base URL
func (p *OpenAIProvider) Endpoint() string {
	return p.endpoint
}

// Embed sends all texts in a single embeddings request
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([]model.Embedding, error) {
	if len(texts) == 0 {
		return []model.Embedding{}, nil
	}

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(p.config.Model),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	// Results carry their input index and may arrive out of order
	vecs := make([]model.Embedding, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("OpenAI returned embedding for index %d of %d", d.Index, len(texts))
		}
		vec := make(model.Embedding, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		vecs[d.Index] = vec
	}
	for i, v := range vecs {
		if v == nil {
			return nil, fmt.Errorf("%w: no embedding for text %d", ErrCountMismatch, i)
		}
	}

	if err := checkBatch(len(texts), vecs); err != nil {
		return nil, err
	}
	return vecs, nil
}
