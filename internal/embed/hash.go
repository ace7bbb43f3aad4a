package embed

import (
	"context"
	"hash/fnv"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/ppiankov/contrapair/internal/model"
)

// DefaultHashDimensions is used when no dimensionality is configured
const DefaultHashDimensions = 384

// HashProvider is an offline provider using the hashing trick over word tokens.
// Texts that share words get positive cosine similarity; identical texts get 1.
// Useful for tests, demos and dry runs, not for real corpora.
type HashProvider struct {
	dim int
}

// NewHashProvider creates a hash provider with the given dimensionality
func NewHashProvider(dimensions int) *HashProvider {
	if dimensions <= 0 {
		dimensions = DefaultHashDimensions
	}
	return &HashProvider{dim: dimensions}
}

// Name returns the provider name
func (p *HashProvider) Name() string {
	return "hash"
}

// Model returns the model identifier, which encodes the dimensionality
func (p *HashProvider) Model() string {
	return "fnv-tokens-" + strconv.Itoa(p.dim)
}

// Embed hashes every text; it only fails when ctx is done
func (p *HashProvider) Embed(ctx context.Context, texts []string) ([]model.Embedding, error) {
	vecs := make([]model.Embedding, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vecs[i] = p.vector(text)
	}
	return vecs, nil
}

func (p *HashProvider) vector(text string) model.Embedding {
	vec := make([]float64, p.dim)

	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, tok := range tokens {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()

		idx := int(sum % uint64(p.dim))
		sign := 1.0
		if sum>>63 == 1 {
			sign = -1.0
		}
		vec[idx] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	out := make(model.Embedding, p.dim)
	if norm == 0 {
		// No tokens: a constant unit vector keeps the result valid
		out[0] = 1
		return out
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}
