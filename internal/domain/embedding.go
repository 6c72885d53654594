package domain

import "context"

// EmbeddingResult is a computed embedding plus provider token usage.
// Token counts are zero for in-process backends and cache hits.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// EmbeddingUpdate pairs a content id with its computed vector for a
// bulk upsert.
type EmbeddingUpdate struct {
	ID     int64
	Vector []float32
}

// Vectorizer turns text into a fixed-dimension unit-normalized vector.
// Embed must be deterministic for a fixed model version.
type Vectorizer interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
	Dimensions() int
	Model() string
}
