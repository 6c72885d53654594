package domain

import "errors"

var (
	// ErrInvalidArgument signals malformed caller input (bad weights, bad topK).
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrStoreUnavailable signals a transient store failure; the caller owns retry.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrDimensionMismatch signals a fatal configuration error: the vectorizer
	// produces a different vector width than the store column expects.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding backend failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
)
