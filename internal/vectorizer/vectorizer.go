// Package vectorizer turns text into fixed-dimension unit-normalized
// embeddings. Two compute backends exist: an in-process deterministic
// reference embedder and a remote OpenAI-compatible provider. The
// backend is chosen by configuration, never branched on at query time.
package vectorizer

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/JyotiRSharma/hybrid-search/internal/config"
	"github.com/JyotiRSharma/hybrid-search/internal/domain"
	"go.uber.org/zap"
)

// New builds the configured backend.
func New(cfg config.EmbeddingConfig, logger *zap.Logger) (domain.Vectorizer, error) {
	switch cfg.Backend {
	case "reference":
		return NewReference(cfg.Model, cfg.Dimensions), nil
	case "remote":
		return NewRemote(RemoteConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Logger:     logger,
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedding backend %q", cfg.Backend)
	}
}

// Lazy defers backend construction to the first Embed call and shares
// the built instance across all callers. Construction is synchronized
// exactly once; a construction failure is returned to every caller.
type Lazy struct {
	once  sync.Once
	build func() (domain.Vectorizer, error)
	inner domain.Vectorizer
	err   error

	dims  int
	model string
}

// NewLazy wraps a backend factory. dims and model come from config so
// they are answerable without forcing the (possibly expensive) load.
func NewLazy(dims int, model string, build func() (domain.Vectorizer, error)) *Lazy {
	return &Lazy{build: build, dims: dims, model: model}
}

func (l *Lazy) init() {
	l.once.Do(func() {
		l.inner, l.err = l.build()
	})
}

// Embed implements domain.Vectorizer.
func (l *Lazy) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	l.init()
	if l.err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("load vectorizer: %w", l.err)
	}
	return l.inner.Embed(ctx, text)
}

// Dimensions implements domain.Vectorizer.
func (l *Lazy) Dimensions() int { return l.dims }

// Model implements domain.Vectorizer.
func (l *Lazy) Model() string { return l.model }

// CheckDimensions embeds a probe string and verifies the produced width
// matches the store's vector column. Run this before any write; a
// mismatch is a fatal configuration error.
func CheckDimensions(ctx context.Context, v domain.Vectorizer, storeDims int) error {
	res, err := v.Embed(ctx, "check")
	if err != nil {
		return fmt.Errorf("probe embedding: %w", err)
	}
	if len(res.Embedding) != storeDims {
		return fmt.Errorf("%w: model %s produced %d dims, store expects %d",
			domain.ErrDimensionMismatch, v.Model(), len(res.Embedding), storeDims)
	}
	return nil
}

// Normalize scales v to unit length in place and returns it.
// The zero vector is returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}
