package postgres

import (
	"context"
	"fmt"
	"time"
)

// schemaSQL creates the two base tables. The tsvector columns are
// generated so the lexical representations can never drift from the
// source text. The embedding column stays NULL until the backfill
// pipeline fills it.
const schemaSQLTemplate = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS magazine_info (
    id               BIGSERIAL PRIMARY KEY,
    title            TEXT NOT NULL,
    author           TEXT NOT NULL,
    publication_date DATE NOT NULL,
    category         TEXT NOT NULL,
    info_tsv         tsvector GENERATED ALWAYS AS (
        to_tsvector('english', coalesce(title,'') || ' ' || coalesce(author,'') || ' ' || coalesce(category,''))
    ) STORED,
    UNIQUE (title, author, publication_date, category)
);

CREATE TABLE IF NOT EXISTS magazine_content (
    id          BIGSERIAL PRIMARY KEY,
    magazine_id BIGINT NOT NULL REFERENCES magazine_info(id),
    content     TEXT NOT NULL,
    embedding   vector(%d),
    content_tsv tsvector GENERATED ALWAYS AS (
        to_tsvector('english', coalesce(content,''))
    ) STORED
);
`

// EnsureSchema creates the base tables if absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(schemaSQLTemplate, s.dims)); err != nil {
		return storeErr("ensure schema", err)
	}
	return nil
}

// EnsureMagazine inserts a metadata record if its four identifying
// attributes are new, and returns the record id either way.
func (s *Store) EnsureMagazine(ctx context.Context, title, author string, publicationDate time.Time, category string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
INSERT INTO magazine_info (title, author, publication_date, category)
VALUES ($1, $2, $3, $4)
ON CONFLICT (title, author, publication_date, category)
  DO UPDATE SET title = EXCLUDED.title
RETURNING id`, title, author, publicationDate, category).Scan(&id)
	if err != nil {
		return 0, storeErr("ensure magazine", err)
	}
	return id, nil
}

// ContentInsert is one content row to load.
type ContentInsert struct {
	MagazineID int64
	Content    string
}

// InsertContents loads a batch of content rows in one transaction.
func (s *Store) InsertContents(ctx context.Context, batch []ContentInsert) error {
	if len(batch) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin insert tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO magazine_content (magazine_id, content) VALUES ($1, $2)")
	if err != nil {
		return storeErr("prepare insert", err)
	}
	defer stmt.Close()

	for _, c := range batch {
		if _, err := stmt.ExecContext(ctx, c.MagazineID, c.Content); err != nil {
			return storeErr("insert content", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storeErr("commit insert tx", err)
	}
	return nil
}
