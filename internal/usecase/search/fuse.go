package search

import (
	"sort"

	"github.com/JyotiRSharma/hybrid-search/internal/domain"
)

// OverfetchFactor widens the ANN candidate pool relative to the
// requested page. Vector-only neighbors and lexical-only matches rarely
// coincide; the wider pool gives fusion enough overlap to blend instead
// of being dominated by one side.
const OverfetchFactor = 5

// fusedHit is one document after score fusion.
type fusedHit struct {
	ID    int64
	Score float64
}

// fuse full-outer-unions the lexical and vector candidate sets by
// document id. A document missing from one side contributes exactly
// zero from that side; nothing is excluded for lacking one kind of
// match. Vector distance is converted to a similarity (1 - distance) so
// both inputs share the higher-is-better convention.
//
// fused = kwWeight*lexicalScore + vecWeight*vectorScore
//
// The result is sorted by fused score descending, ties broken by
// ascending id so equal scores rank deterministically, and truncated
// to topK.
func fuse(lexical []domain.LexicalHit, vector []domain.VectorHit, kwWeight, vecWeight float64, topK int) []fusedHit {
	merged := make(map[int64]*fusedHit, len(lexical)+len(vector))

	for _, h := range lexical {
		merged[h.ID] = &fusedHit{ID: h.ID, Score: kwWeight * h.Score}
	}

	for _, h := range vector {
		vecScore := vecWeight * (1 - h.Distance)
		if existing, ok := merged[h.ID]; ok {
			existing.Score += vecScore
		} else {
			merged[h.ID] = &fusedHit{ID: h.ID, Score: vecScore}
		}
	}

	results := make([]fusedHit, 0, len(merged))
	for _, h := range merged {
		results = append(results, *h)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > topK {
		results = results[:topK]
	}

	return results
}
