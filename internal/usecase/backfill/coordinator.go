// Package backfill drives the batched, shardable, resumable pipeline
// that computes and persists document embeddings.
package backfill

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JyotiRSharma/hybrid-search/internal/domain"
	"github.com/JyotiRSharma/hybrid-search/internal/metrics"
	"github.com/JyotiRSharma/hybrid-search/internal/vectorizer"
)

// Defaults tuned for sustained runs on modest hardware.
const (
	DefaultFetchBatch  = 256
	DefaultEncodeBatch = 64
	DefaultCooldown    = 150 * time.Millisecond

	// Fraction of the cooldown inserted between encode sub-batches.
	encodeCooldownFraction = 0.35
)

// Config holds one worker's run parameters.
type Config struct {
	Selection domain.Selection
	// RowCap bounds total rows handled this run. 0 means no cap.
	RowCap int
	// FetchBatch is rows pulled from the store per iteration.
	FetchBatch int
	// EncodeBatch is the vectorizer sub-batch size, kept smaller than
	// FetchBatch to bound peak memory and compute.
	EncodeBatch int
	// Cooldown is the throttle between iterations (and, scaled down,
	// between encode sub-batches).
	Cooldown time.Duration
	// DropVectorIndexFirst removes the ANN index before writing.
	DropVectorIndexFirst bool
	// PostIndex rebuilds indexes and refreshes planner statistics at
	// the end.
	PostIndex bool
	// SkipEmpty skips rows whose text is empty after trimming; they
	// carry no lexical or semantic signal.
	SkipEmpty bool
}

func (c *Config) applyDefaults() {
	if c.FetchBatch <= 0 {
		c.FetchBatch = DefaultFetchBatch
	}
	if c.EncodeBatch <= 0 {
		c.EncodeBatch = DefaultEncodeBatch
	}
	if c.EncodeBatch > c.FetchBatch {
		c.EncodeBatch = c.FetchBatch
	}
	if c.Cooldown < 0 {
		c.Cooldown = DefaultCooldown
	}
	if c.Selection.Workers <= 0 {
		c.Selection.Workers = 1
	}
}

func (c *Config) validate() error {
	if c.Selection.WorkerIndex < 0 || c.Selection.WorkerIndex >= c.Selection.Workers {
		return fmt.Errorf("%w: worker index %d out of range for %d workers",
			domain.ErrInvalidArgument, c.Selection.WorkerIndex, c.Selection.Workers)
	}
	if c.RowCap < 0 {
		return fmt.Errorf("%w: row cap must not be negative", domain.ErrInvalidArgument)
	}
	return nil
}

// Summary reports one run's outcome.
type Summary struct {
	// Processed is rows embedded and committed.
	Processed int
	// Skipped is rows passed over (empty content).
	Skipped int
	// Pending is rows this worker still owes after the run.
	Pending int
}

// Coordinator runs the fetch -> encode -> upsert loop for one worker.
// Strictly sequential by design: the cooldowns are backpressure, not an
// accident of scheduling.
type Coordinator struct {
	store     Store
	maint     IndexMaintainer
	embed     Vectorizer
	storeDims int
	logger    *zap.Logger

	// sleep is swappable so tests do not wait out cooldowns.
	sleep func(time.Duration)
}

// New creates a coordinator. storeDims is the store's vector column
// width, checked against the model before any row is touched.
func New(store Store, maint IndexMaintainer, embed Vectorizer, storeDims int, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		store:     store,
		maint:     maint,
		embed:     embed,
		storeDims: storeDims,
		logger:    logger,
		sleep:     time.Sleep,
	}
}

// Run drives the pipeline to completion or to the configured row cap.
// The cursor only advances after a committed upsert, so a failed run
// resumes safely: re-embedding the same text yields the same vector.
func (co *Coordinator) Run(ctx context.Context, cfg Config) (Summary, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Summary{}, err
	}

	// Fatal before any row is touched: the model and the store column
	// must agree on vector width.
	if err := vectorizer.CheckDimensions(ctx, co.embed, co.storeDims); err != nil {
		return Summary{}, err
	}

	if cfg.DropVectorIndexFirst {
		if err := co.maint.DropVectorIndex(ctx); err != nil {
			return Summary{}, fmt.Errorf("drop vector index: %w", err)
		}
		co.logger.Info("dropped vector index before bulk write")
	}

	pendingTotal, err := co.store.CountPending(ctx, cfg.Selection)
	if err != nil {
		return Summary{}, fmt.Errorf("count pending: %w", err)
	}
	pending := pendingTotal
	if cfg.RowCap > 0 && cfg.RowCap < pending {
		pending = cfg.RowCap
	}
	co.logger.Info("backfill starting",
		zap.Int("pending", pending),
		zap.Int("pending_total", pendingTotal),
		zap.Int("workers", cfg.Selection.Workers),
		zap.Int("worker_index", cfg.Selection.WorkerIndex),
		zap.Bool("only_missing", cfg.Selection.OnlyMissing),
		zap.String("model", co.embed.Model()),
	)

	summary := Summary{Pending: pendingTotal}
	if pending == 0 {
		return summary, co.finish(ctx, cfg)
	}

	var cursor int64
	handled := 0
	for handled < pending {
		todo := cfg.FetchBatch
		if remaining := pending - handled; remaining < todo {
			todo = remaining
		}

		docs, err := co.store.FetchPending(ctx, cfg.Selection, cursor, todo)
		if err != nil {
			return summary, fmt.Errorf("fetch batch: %w", err)
		}
		if len(docs) == 0 {
			break
		}

		batchStart := time.Now()
		updates, skipped, err := co.encodeBatch(ctx, docs, cfg)
		if err != nil {
			return summary, err
		}

		upsertStart := time.Now()
		if err := co.store.UpsertEmbeddings(ctx, updates); err != nil {
			return summary, fmt.Errorf("upsert batch: %w", err)
		}
		metrics.BackfillBatchDuration.WithLabelValues("upsert").Observe(time.Since(upsertStart).Seconds())
		metrics.BackfillBatchDuration.WithLabelValues("total").Observe(time.Since(batchStart).Seconds())
		metrics.BackfillRowsTotal.WithLabelValues("processed").Add(float64(len(updates)))
		metrics.BackfillRowsTotal.WithLabelValues("skipped").Add(float64(skipped))

		// The batch committed; only now is it safe to move past it.
		cursor = docs[len(docs)-1].ID
		handled += len(docs)
		summary.Processed += len(updates)
		summary.Skipped += skipped
		summary.Pending = pendingTotal - handled

		co.logger.Info("batch committed",
			zap.Int("handled", handled),
			zap.Int("pending", pending),
			zap.Int64("cursor", cursor),
		)

		if cfg.Cooldown > 0 {
			co.sleep(cfg.Cooldown)
		}
	}

	co.logger.Info("backfill complete",
		zap.Int("processed", summary.Processed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("pending", summary.Pending),
	)
	return summary, co.finish(ctx, cfg)
}

// encodeBatch encodes one fetched batch in encode-sized sub-batches,
// truncating text first and inserting the scaled cooldown between
// sub-batches.
func (co *Coordinator) encodeBatch(ctx context.Context, docs []domain.Document, cfg Config) ([]domain.EmbeddingUpdate, int, error) {
	encodeStart := time.Now()
	updates := make([]domain.EmbeddingUpdate, 0, len(docs))
	skipped := 0

	for i, doc := range docs {
		text := doc.TruncateForEmbedding()
		if cfg.SkipEmpty && strings.TrimSpace(text) == "" {
			skipped++
			continue
		}

		res, err := co.embed.Embed(ctx, text)
		if err != nil {
			return nil, 0, fmt.Errorf("encode row %d: %w", doc.ID, err)
		}
		updates = append(updates, domain.EmbeddingUpdate{ID: doc.ID, Vector: res.Embedding})

		// Micro-cooldown at each sub-batch boundary.
		if cfg.Cooldown > 0 && (i+1)%cfg.EncodeBatch == 0 && i+1 < len(docs) {
			co.sleep(time.Duration(float64(cfg.Cooldown) * encodeCooldownFraction))
		}
	}

	metrics.BackfillBatchDuration.WithLabelValues("encode").Observe(time.Since(encodeStart).Seconds())
	return updates, skipped, nil
}

// finish optionally rebuilds indexes and refreshes planner statistics.
func (co *Coordinator) finish(ctx context.Context, cfg Config) error {
	if !cfg.PostIndex {
		return nil
	}
	if err := co.maint.RebuildAndAnalyze(ctx); err != nil {
		return fmt.Errorf("rebuild indexes: %w", err)
	}
	co.logger.Info("indexes rebuilt and statistics refreshed")
	return nil
}
