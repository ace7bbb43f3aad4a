package cache

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/ppiankov/contrapair/internal/model"
)

// Cache stores embeddings keyed by provider, model and text
type Cache interface {
	Get(key string) (model.Embedding, bool)
	Set(key string, vec model.Embedding) error
	Delete(key string) error
	Clear() error
}

// Key derives a cache key from the embedding provider, model and text.
// Changing any of the three yields a different key.
func Key(provider, modelName, text string) string {
	h := sha256.New()
	h.Write([]byte("contrapair:v1\x00"))
	h.Write([]byte(provider))
	h.Write([]byte{0})
	h.Write([]byte(modelName))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

func clone(vec model.Embedding) model.Embedding {
	out := make(model.Embedding, len(vec))
	copy(out, vec)
	return out
}
