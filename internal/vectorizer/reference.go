package vectorizer

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/JyotiRSharma/hybrid-search/internal/domain"
)

// Reference is the software compute backend: a deterministic
// feature-hashing embedder. Tokens are hashed into a fixed number of
// signed buckets and the result is L2-normalized. It captures term
// overlap only, but it is fast, dependency-free, and bit-stable across
// runs, which is what the backfill resumability contract requires.
type Reference struct {
	model string
	dims  int
}

// NewReference creates a reference embedder at the given dimension.
func NewReference(model string, dims int) *Reference {
	return &Reference{model: model, dims: dims}
}

// Embed implements domain.Vectorizer. Empty or tokenless text yields the
// zero vector, which by convention means "no semantic signal".
func (r *Reference) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	vec := make([]float32, r.dims)
	for _, tok := range tokenize(text) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()
		bucket := int(sum % uint64(r.dims))
		// Top bit decides the sign so colliding tokens can cancel
		// instead of always accumulating.
		if sum&(1<<63) != 0 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}
	}
	return domain.EmbeddingResult{Embedding: Normalize(vec)}, nil
}

// Dimensions implements domain.Vectorizer.
func (r *Reference) Dimensions() int { return r.dims }

// Model implements domain.Vectorizer.
func (r *Reference) Model() string { return r.model }

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsDigit(c)
	})
}
