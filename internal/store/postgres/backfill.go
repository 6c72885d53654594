package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/JyotiRSharma/hybrid-search/internal/domain"
)

// selectionClause renders the WHERE fragment for a domain.Selection and
// its arguments, with placeholders starting at $next.
func selectionClause(sel domain.Selection, next int) (string, []any) {
	var conds []string
	var args []any
	if sel.OnlyMissing {
		conds = append(conds, "embedding IS NULL")
	} else {
		conds = append(conds, "TRUE")
	}
	if sel.Workers > 1 {
		conds = append(conds, fmt.Sprintf("mod(id, $%d) = $%d", next, next+1))
		args = append(args, sel.Workers, sel.WorkerIndex)
	}
	return strings.Join(conds, " AND "), args
}

// CountPending counts content rows this worker still owes embeddings.
func (s *Store) CountPending(ctx context.Context, sel domain.Selection) (int, error) {
	clause, args := selectionClause(sel, 1)
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM magazine_content WHERE "+clause, args...,
	).Scan(&n)
	if err != nil {
		return 0, storeErr("count pending", err)
	}
	return n, nil
}

// FetchPending returns the next batch of candidate rows in ascending id
// order, strictly after the cursor. Ascending order is what makes the
// cursor-resume strategy correct.
func (s *Store) FetchPending(ctx context.Context, sel domain.Selection, cursor int64, limit int) ([]domain.Document, error) {
	clause, args := selectionClause(sel, 2)
	args = append([]any{cursor}, args...)
	args = append(args, limit)
	q := fmt.Sprintf(`
SELECT id, magazine_id, content
FROM magazine_content
WHERE id > $1 AND %s
ORDER BY id
LIMIT $%d`, clause, len(args))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storeErr("fetch pending", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var d domain.Document
		if err := rows.Scan(&d.ID, &d.MagazineID, &d.Content); err != nil {
			return nil, storeErr("fetch pending scan", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("fetch pending rows", err)
	}
	return docs, nil
}

// UpsertEmbeddings writes a batch of computed vectors in one
// transaction, keyed by content id. All rows commit or none do, so a
// failed batch never advances the caller's cursor.
func (s *Store) UpsertEmbeddings(ctx context.Context, batch []domain.EmbeddingUpdate) error {
	if len(batch) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin upsert tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		fmt.Sprintf("UPDATE magazine_content SET embedding = $2::vector(%d) WHERE id = $1", s.dims))
	if err != nil {
		return storeErr("prepare upsert", err)
	}
	defer stmt.Close()

	for _, u := range batch {
		if len(u.Vector) != s.dims {
			return fmt.Errorf("%w: row %d has %d dims, column expects %d",
				domain.ErrDimensionMismatch, u.ID, len(u.Vector), s.dims)
		}
		lit, err := encodeVectorLiteral(u.Vector)
		if err != nil {
			return fmt.Errorf("encode vector for row %d: %w", u.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, u.ID, lit); err != nil {
			return storeErr(fmt.Sprintf("upsert embedding %d", u.ID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storeErr("commit upsert tx", err)
	}
	return nil
}
