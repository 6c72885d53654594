package search

import (
	"context"

	"github.com/JyotiRSharma/hybrid-search/internal/domain"
)

// Repository reduces the store to the two ranking primitives fusion
// needs, plus hydration of the final page.
type Repository interface {
	// LexicalSearch scores documents matching the parsed query,
	// higher is better.
	LexicalSearch(ctx context.Context, query string) ([]domain.LexicalHit, error)
	// VectorSearch returns the k nearest embedded documents, closest first.
	VectorSearch(ctx context.Context, vec []float32, k int) ([]domain.VectorHit, error)
	// FetchResults hydrates metadata and content for the given ids.
	FetchResults(ctx context.Context, ids []int64) (map[int64]domain.ResultRow, error)
}

// Vectorizer embeds the query text.
type Vectorizer interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
