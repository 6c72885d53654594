package postgres

import (
	"context"
	"fmt"
)

// Index names. The vector index is dropped around bulk writes; the GIN
// indexes stay (tsvector maintenance is cheap relative to ivfflat).
const (
	vectorIndexName     = "idx_mag_content_embedding_ivf"
	infoTSVIndexName    = "idx_mag_info_tsv"
	contentTSVIndexName = "idx_mag_content_tsv"
)

// DropVectorIndex removes the ANN index so bulk embedding writes skip
// index maintenance. Idempotent: safe when the index does not exist.
func (s *Store) DropVectorIndex(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DROP INDEX IF EXISTS "+vectorIndexName); err != nil {
		return storeErr("drop vector index", err)
	}
	return nil
}

// RebuildAndAnalyze creates the ANN and lexical indexes if absent, then
// refreshes planner statistics. Store-wide and expensive; call only at
// pipeline boundaries, never per document.
func (s *Store) RebuildAndAnalyze(ctx context.Context) error {
	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s
  ON magazine_content USING ivfflat (embedding vector_cosine_ops)
  WITH (lists = 200)`, vectorIndexName),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON magazine_info USING GIN (info_tsv)", infoTSVIndexName),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON magazine_content USING GIN (content_tsv)", contentTSVIndexName),
		"ANALYZE magazine_content",
		"ANALYZE magazine_info",
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return storeErr("rebuild and analyze", err)
		}
	}
	return nil
}
