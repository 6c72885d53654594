package backfill

import (
	"context"

	"github.com/JyotiRSharma/hybrid-search/internal/domain"
)

// Store is the storage contract for the backfill loop.
type Store interface {
	// CountPending counts rows this worker still owes embeddings.
	CountPending(ctx context.Context, sel domain.Selection) (int, error)
	// FetchPending returns the next batch strictly after cursor, in
	// ascending id order.
	FetchPending(ctx context.Context, sel domain.Selection, cursor int64, limit int) ([]domain.Document, error)
	// UpsertEmbeddings writes one batch atomically.
	UpsertEmbeddings(ctx context.Context, batch []domain.EmbeddingUpdate) error
}

// IndexMaintainer manages the ANN and lexical indexes around bulk writes.
type IndexMaintainer interface {
	DropVectorIndex(ctx context.Context) error
	RebuildAndAnalyze(ctx context.Context) error
}

// Vectorizer encodes document text.
type Vectorizer interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
	Dimensions() int
	Model() string
}
