package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JyotiRSharma/hybrid-search/internal/domain"
	"github.com/JyotiRSharma/hybrid-search/internal/logger"
)

// Service is the hybrid retrieval engine: it embeds the query, pulls
// both candidate sets, fuses them in process, and hydrates the page.
type Service struct {
	repo  Repository
	embed Vectorizer
}

// New creates a search service.
func New(repo Repository, embed Vectorizer) *Service {
	return &Service{repo: repo, embed: embed}
}

// Search executes one hybrid query. Validation failures, embedding
// failures and store failures each fail the whole operation; no partial
// results are returned.
func (s *Service) Search(ctx context.Context, req domain.SearchRequest) ([]domain.RankedResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	embResult, err := s.embed.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	vectorHits, err := s.repo.VectorSearch(ctx, embResult.Embedding, req.TopK*OverfetchFactor)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	lexicalHits, err := s.repo.LexicalSearch(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	fused := fuse(lexicalHits, vectorHits, req.KeywordWeight, req.VectorWeight, req.TopK)
	if len(fused) == 0 {
		return []domain.RankedResult{}, nil
	}

	ids := make([]int64, len(fused))
	for i, h := range fused {
		ids[i] = h.ID
	}
	rows, err := s.repo.FetchResults(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch results: %w", err)
	}

	results := make([]domain.RankedResult, 0, len(fused))
	skipped := 0
	for _, h := range fused {
		row, ok := rows[h.ID]
		if !ok {
			// Matched at ranking time but gone at mapping time.
			// Data error: skip with a count, not fatal.
			skipped++
			continue
		}
		results = append(results, domain.RankedResult{
			ContentID: h.ID,
			Score:     h.Score,
			Magazine:  row.Magazine,
			Snippet:   domain.Truncate(row.Content, domain.SnippetChars),
		})
	}
	if skipped > 0 {
		logger.FromContext(ctx).Warn("dropped unresolvable hits",
			zap.Int("skipped", skipped),
			zap.String("query", req.Query),
		)
	}

	return results, nil
}
