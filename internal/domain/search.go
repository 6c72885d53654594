package domain

import "fmt"

// Search request bounds and defaults.
const (
	DefaultTopK = 20
	MaxTopK     = 200

	DefaultKeywordWeight = 0.5
	DefaultVectorWeight  = 0.5
)

// SearchRequest is an ephemeral query: raw text plus per-request tunables.
type SearchRequest struct {
	Query         string
	TopK          int
	KeywordWeight float64
	VectorWeight  float64
}

// Validate checks request bounds. Out-of-range values are rejected, not
// clamped, so a caller typo never silently changes the ranking.
func (r SearchRequest) Validate() error {
	if r.Query == "" {
		return fmt.Errorf("%w: query must not be empty", ErrInvalidArgument)
	}
	if r.TopK < 1 || r.TopK > MaxTopK {
		return fmt.Errorf("%w: top_k must be in [1,%d], got %d", ErrInvalidArgument, MaxTopK, r.TopK)
	}
	if r.KeywordWeight < 0 || r.KeywordWeight > 1 {
		return fmt.Errorf("%w: kw_weight must be in [0,1], got %g", ErrInvalidArgument, r.KeywordWeight)
	}
	if r.VectorWeight < 0 || r.VectorWeight > 1 {
		return fmt.Errorf("%w: vec_weight must be in [0,1], got %g", ErrInvalidArgument, r.VectorWeight)
	}
	return nil
}

// RankedResult is one fused search hit. Ephemeral, never persisted.
type RankedResult struct {
	ContentID int64
	Score     float64
	Magazine  Magazine
	Snippet   string
}

// LexicalHit is one row of the inverted-index ranking. Score is the
// field-weighted ts_rank, higher is better.
type LexicalHit struct {
	ID    int64
	Score float64
}

// VectorHit is one row of the ANN candidate set. Distance is raw
// embedding distance, lower is closer.
type VectorHit struct {
	ID       int64
	Distance float64
}

// ResultRow is a hydrated content row: metadata snapshot plus full text.
type ResultRow struct {
	ContentID int64
	Magazine  Magazine
	Content   string
}
