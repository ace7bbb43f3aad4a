package embed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/contrapair/internal/cache"
	"github.com/ppiankov/contrapair/internal/model"
	"github.com/ppiankov/contrapair/internal/worker"
)

// countingProvider returns deterministic vectors and records calls
type countingProvider struct {
	mu       sync.Mutex
	calls    int
	batches  [][]string
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
	failOn   string
	dim      func(text string) int
}

func (p *countingProvider) Name() string  { return "fake" }
func (p *countingProvider) Model() string { return "fake-1" }

func (p *countingProvider) Embed(ctx context.Context, texts []string) ([]model.Embedding, error) {
	n := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	p.mu.Lock()
	p.calls++
	p.batches = append(p.batches, append([]string(nil), texts...))
	p.mu.Unlock()

	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	vecs := make([]model.Embedding, len(texts))
	for i, text := range texts {
		if p.failOn != "" && text == p.failOn {
			return nil, fmt.Errorf("refused %q", text)
		}
		dim := 2
		if p.dim != nil {
			dim = p.dim(text)
		}
		vec := make(model.Embedding, dim)
		vec[0] = float32(len(text))
		vecs[i] = vec
	}
	return vecs, nil
}

func texts(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = strings.Repeat("x", i+1)
	}
	return out
}

func TestOpenAIProvider_Embed_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("Expected path /embeddings, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected Authorization header Bearer test-key, got %s", r.Header.Get("Authorization"))
		}

		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "text-embedding-3-small" {
			t.Errorf("Expected model text-embedding-3-small, got %s", req.Model)
		}
		if len(req.Input) != 2 {
			t.Errorf("Expected 2 inputs, got %d", len(req.Input))
		}

		// Out of order on purpose
		_, _ = w.Write([]byte(`{"object":"list","model":"text-embedding-3-small","data":[
			{"object":"embedding","index":1,"embedding":[0,1]},
			{"object":"embedding","index":0,"embedding":[1,0]}
		],"usage":{"prompt_tokens":4,"total_tokens":4}}`))
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "text-embedding-3-small",
		Timeout: 5,
	})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	vecs, err := provider.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("Expected 2 vectors, got %d", len(vecs))
	}
	if vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Errorf("Vectors not placed by index: %v", vecs)
	}
	if provider.Endpoint() != server.URL {
		t.Errorf("Expected endpoint %s, got %s", server.URL, provider.Endpoint())
	}
}

func TestOpenAIProvider_Embed_MissingIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[1,0]}]}`))
	}))
	defer server.Close()

	provider, _ := NewOpenAIProvider(Config{APIKey: "k", BaseURL: server.URL})

	_, err := provider.Embed(context.Background(), []string{"a", "b"})
	if !errors.Is(err, ErrCountMismatch) {
		t.Errorf("Expected ErrCountMismatch, got %v", err)
	}
}

func TestOpenAIProvider_Embed_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid API key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	provider, _ := NewOpenAIProvider(Config{APIKey: "bad", BaseURL: server.URL})

	if _, err := provider.Embed(context.Background(), []string{"a"}); err == nil {
		t.Error("Expected error for 401 response")
	}
}

func TestNewOpenAIProvider_RequiresKey(t *testing.T) {
	if _, err := NewOpenAIProvider(Config{}); err == nil {
		t.Error("Expected error without API key")
	}
}

func TestOllamaProvider_Embed_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("Expected path /api/embed, got %s", r.URL.Path)
		}
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "nomic-embed-text" {
			t.Errorf("Expected default model nomic-embed-text, got %s", req.Model)
		}

		resp := ollamaEmbedResponse{Model: req.Model}
		for i := range req.Input {
			resp.Embeddings = append(resp.Embeddings, []float32{float32(i), 1})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL + "/"})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	vecs, err := provider.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vecs) != 3 || vecs[2][0] != 2 {
		t.Errorf("Unexpected vectors: %v", vecs)
	}
}

func TestOllamaProvider_Embed_ModelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(ollamaError{Error: "model \"missing\" not found"})
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL, Model: "missing"})

	_, err := provider.Embed(context.Background(), []string{"a"})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("Expected not found error, got %v", err)
	}
}

func TestOllamaProvider_Embed_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float32{{1, 0}}})
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL})

	_, err := provider.Embed(context.Background(), []string{"a", "b"})
	if !errors.Is(err, ErrCountMismatch) {
		t.Errorf("Expected ErrCountMismatch, got %v", err)
	}
}

func TestOllamaProvider_Embed_DimensionMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float32{{1, 0}, {1, 0, 0}}})
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL})

	_, err := provider.Embed(context.Background(), []string{"a", "b"})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Expected ErrDimensionMismatch, got %v", err)
	}
}

func cosine(a, b model.Embedding) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestHashProvider_Embed(t *testing.T) {
	p := NewHashProvider(64)

	vecs, err := p.Embed(context.Background(), []string{
		"Farmers need better MSP",
		"farmers need better msp!",
		"MSP should be increased",
		"Weather is nice today",
		"",
	})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	for i, v := range vecs {
		if len(v) != 64 {
			t.Errorf("vector %d: expected 64 dims, got %d", i, len(v))
		}
	}

	if sim := cosine(vecs[0], vecs[1]); math.Abs(sim-1) > 1e-6 {
		t.Errorf("case and punctuation should not matter, cosine = %f", sim)
	}
	if sim := cosine(vecs[0], vecs[2]); sim <= 0 {
		t.Errorf("texts sharing a token should be similar, cosine = %f", sim)
	}
	if vecs[4][0] != 1 {
		t.Errorf("empty text should map to the constant unit vector, got %v", vecs[4][:2])
	}
}

func TestHashProvider_Deterministic(t *testing.T) {
	a, _ := NewHashProvider(32).Embed(context.Background(), []string{"same text"})
	b, _ := NewHashProvider(32).Embed(context.Background(), []string{"same text"})
	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Fatalf("component %d differs: %f vs %f", i, a[0][i], b[0][i])
		}
	}
}

func TestHashProvider_DefaultDimensions(t *testing.T) {
	p := NewHashProvider(0)
	if p.Model() != "fnv-tokens-384" {
		t.Errorf("Expected fnv-tokens-384, got %s", p.Model())
	}
}

func TestBatcher_SplitsAndPreservesOrder(t *testing.T) {
	inner := &countingProvider{}
	b := NewBatcher(inner, BatchOptions{BatchSize: 3, Workers: 2})

	in := texts(10)
	vecs, err := b.Embed(context.Background(), in)
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if inner.calls != 4 {
		t.Errorf("Expected 4 batches, got %d", inner.calls)
	}
	for _, batch := range inner.batches {
		if len(batch) > 3 {
			t.Errorf("batch exceeds size 3: %d", len(batch))
		}
	}
	for i, v := range vecs {
		if int(v[0]) != len(in[i]) {
			t.Errorf("vector %d misaligned: got %v", i, v)
		}
	}
}

func TestBatcher_BoundedConcurrency(t *testing.T) {
	inner := &countingProvider{delay: 20 * time.Millisecond}
	b := NewBatcher(inner, BatchOptions{BatchSize: 1, Workers: 2})

	if _, err := b.Embed(context.Background(), texts(8)); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if peak := inner.peak.Load(); peak > 2 {
		t.Errorf("Expected at most 2 concurrent calls, got %d", peak)
	}
}

func TestBatcher_PropagatesError(t *testing.T) {
	in := texts(6)
	inner := &countingProvider{failOn: in[4]}
	b := NewBatcher(inner, BatchOptions{BatchSize: 2, Workers: 1})

	_, err := b.Embed(context.Background(), in)
	if err == nil {
		t.Fatal("Expected error")
	}
	if !strings.Contains(err.Error(), "embed batch 4-6") {
		t.Errorf("Expected failing batch range in error, got %v", err)
	}
}

func TestBatcher_DimensionMismatchAcrossBatches(t *testing.T) {
	inner := &countingProvider{dim: func(text string) int {
		if len(text) > 2 {
			return 3
		}
		return 2
	}}
	b := NewBatcher(inner, BatchOptions{BatchSize: 2, Workers: 1})

	_, err := b.Embed(context.Background(), texts(4))
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Expected ErrDimensionMismatch, got %v", err)
	}
}

func TestBatcher_Empty(t *testing.T) {
	inner := &countingProvider{}
	vecs, err := NewBatcher(inner, BatchOptions{}).Embed(context.Background(), nil)
	if err != nil || len(vecs) != 0 {
		t.Errorf("Expected empty result, got %v, %v", vecs, err)
	}
	if inner.calls != 0 {
		t.Errorf("Expected no provider calls, got %d", inner.calls)
	}
}

func TestCachedProvider_ServesRepeats(t *testing.T) {
	inner := &countingProvider{}
	p := NewCachedProvider(inner, cache.NewMemoryCache(time.Minute, time.Minute), nil)

	first, err := p.Embed(context.Background(), []string{"a", "bb", "a"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(inner.batches) != 1 || len(inner.batches[0]) != 2 {
		t.Fatalf("Expected one call with 2 distinct texts, got %v", inner.batches)
	}
	if first[0][0] != 1 || first[1][0] != 2 || first[2][0] != 1 {
		t.Errorf("Unexpected vectors: %v", first)
	}

	second, err := p.Embed(context.Background(), []string{"bb", "ccc"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(inner.batches) != 2 || len(inner.batches[1]) != 1 || inner.batches[1][0] != "ccc" {
		t.Errorf("Expected only the new text to be embedded, got %v", inner.batches)
	}
	if second[0][0] != 2 || second[1][0] != 3 {
		t.Errorf("Unexpected vectors: %v", second)
	}

	hits, misses := p.Stats()
	if hits != 1 || misses != 3 {
		t.Errorf("Expected 1 hit and 3 misses, got %d and %d", hits, misses)
	}
}

func TestCachedProvider_ErrorNotCached(t *testing.T) {
	inner := &countingProvider{failOn: "bad"}
	c := cache.NewMemoryCache(time.Minute, time.Minute)
	p := NewCachedProvider(inner, c, nil)

	if _, err := p.Embed(context.Background(), []string{"bad"}); err == nil {
		t.Fatal("Expected error")
	}
	if c.Len() != 0 {
		t.Errorf("Expected nothing cached after failure, got %d entries", c.Len())
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		want    string
		wantErr bool
	}{
		{"hash", Config{Provider: "hash"}, "hash", false},
		{"ollama", Config{Provider: "Ollama"}, "ollama", false},
		{"openai", Config{Provider: "openai", APIKey: "k"}, "openai", false},
		{"openai without key", Config{Provider: "openai"}, "", true},
		{"empty", Config{}, "", true},
		{"unknown", Config{Provider: "word2vec"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.config)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewProvider failed: %v", err)
			}
			if p.Name() != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, p.Name())
			}
		})
	}
}

func TestNewFromConfig_Stack(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Embedding.Provider = "hash"
	cfg.Cache.Dir = t.TempDir()

	p, err := NewFromConfig(cfg, nil)
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}

	cached, ok := p.(*CachedProvider)
	if !ok {
		t.Fatalf("Expected *CachedProvider, got %T", p)
	}
	if _, ok := cached.inner.(*Batcher); !ok {
		t.Errorf("Expected cache to wrap *Batcher, got %T", cached.inner)
	}

	cfg.Cache.Enabled = false
	p, err = NewFromConfig(cfg, nil)
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	if _, ok := p.(*Batcher); !ok {
		t.Errorf("Expected *Batcher without cache, got %T", p)
	}
}

func TestBatcher_RateLimitedBatchesComplete(t *testing.T) {
	inner := &countingProvider{}
	limiter := worker.NewLimiter(200, 1)
	b := NewBatcher(inner, BatchOptions{BatchSize: 1, Workers: 3, Limiter: limiter})

	vecs, err := b.Embed(context.Background(), texts(5))
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vecs) != 5 || inner.calls != 5 {
		t.Errorf("Expected 5 vectors from 5 calls, got %d from %d", len(vecs), inner.calls)
	}
}

func TestBatcher_RateLimitCancelled(t *testing.T) {
	inner := &countingProvider{}
	limiter := worker.NewLimiter(0.001, 1)
	b := NewBatcher(inner, BatchOptions{BatchSize: 1, Workers: 1, Limiter: limiter})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := b.Embed(ctx, texts(2)); err == nil {
		t.Error("Expected the second batch to fail waiting for the limiter")
	}
	if inner.calls != 1 {
		t.Errorf("Expected only the first batch to reach the provider, got %d", inner.calls)
	}
}

func TestNewFromConfig_LocalProviderNotThrottled(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Embedding.Provider = "hash"
	cfg.Cache.Enabled = false
	cfg.RateLimiting.RequestsPerSecond = 1
	cfg.RateLimiting.BurstSize = 1

	p, err := NewFromConfig(cfg, nil)
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	b, ok := p.(*Batcher)
	if !ok || b.limiter == nil {
		t.Fatalf("Expected rate limited *Batcher, got %T", p)
	}

	for i := 0; i < 20; i++ {
		if !b.limiter.Allow(b.Endpoint()) {
			t.Fatalf("hash provider was throttled at request %d", i)
		}
	}
}
