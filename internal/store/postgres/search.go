package postgres

import (
	"context"

	"github.com/lib/pq"

	"github.com/JyotiRSharma/hybrid-search/internal/domain"
)

// Field weights for the lexical rank: body text is the primary relevance
// signal, metadata is a boost/tie-break signal. Fixed policy constants.
const lexicalRankSQL = `
SELECT mc.id,
       ts_rank(mi.info_tsv, plainto_tsquery('english', $1)) * 0.3 +
       ts_rank(mc.content_tsv, plainto_tsquery('english', $1)) * 0.7 AS kw_score
FROM magazine_content mc
JOIN magazine_info mi ON mi.id = mc.magazine_id
WHERE mi.info_tsv @@ plainto_tsquery('english', $1)
   OR mc.content_tsv @@ plainto_tsquery('english', $1)`

// LexicalSearch scores documents matching the parsed query against the
// indexed text fields. An empty tsquery matches nothing, so empty-content
// queries naturally return no rows.
func (s *Store) LexicalSearch(ctx context.Context, query string) ([]domain.LexicalHit, error) {
	rows, err := s.db.QueryContext(ctx, lexicalRankSQL, query)
	if err != nil {
		return nil, storeErr("lexical search", err)
	}
	defer rows.Close()

	var hits []domain.LexicalHit
	for rows.Next() {
		var h domain.LexicalHit
		if err := rows.Scan(&h.ID, &h.Score); err != nil {
			return nil, storeErr("lexical search scan", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("lexical search rows", err)
	}
	return hits, nil
}

// VectorSearch returns the k nearest embedded documents to vec by
// embedding distance, ascending.
func (s *Store) VectorSearch(ctx context.Context, vec []float32, k int) ([]domain.VectorHit, error) {
	lit, err := encodeVectorLiteral(vec)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, embedding <-> $1::vector AS distance
FROM magazine_content
WHERE embedding IS NOT NULL
ORDER BY embedding <-> $1::vector
LIMIT $2`, lit, k)
	if err != nil {
		return nil, storeErr("vector search", err)
	}
	defer rows.Close()

	var hits []domain.VectorHit
	for rows.Next() {
		var h domain.VectorHit
		if err := rows.Scan(&h.ID, &h.Distance); err != nil {
			return nil, storeErr("vector search scan", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("vector search rows", err)
	}
	return hits, nil
}

// FetchResults hydrates metadata snapshots and content for the given
// content ids. Ids missing from the corpus are simply absent from the
// returned map; the caller decides whether that is a data error.
func (s *Store) FetchResults(ctx context.Context, ids []int64) (map[int64]domain.ResultRow, error) {
	if len(ids) == 0 {
		return map[int64]domain.ResultRow{}, nil
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT mc.id, mc.content, mi.id, mi.title, mi.author, mi.publication_date, mi.category
FROM magazine_content mc
JOIN magazine_info mi ON mi.id = mc.magazine_id
WHERE mc.id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, storeErr("fetch results", err)
	}
	defer rows.Close()

	out := make(map[int64]domain.ResultRow, len(ids))
	for rows.Next() {
		var r domain.ResultRow
		if err := rows.Scan(
			&r.ContentID, &r.Content,
			&r.Magazine.ID, &r.Magazine.Title, &r.Magazine.Author,
			&r.Magazine.PublicationDate, &r.Magazine.Category,
		); err != nil {
			return nil, storeErr("fetch results scan", err)
		}
		out[r.ContentID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("fetch results rows", err)
	}
	return out, nil
}
