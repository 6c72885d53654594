// Backfill worker: computes embeddings for content rows and writes them
// to the store in resumable batches. Run one process per shard:
//
//	backfill -only-missing -workers 4 -me 0
//	backfill -only-missing -workers 4 -me 1 ...
//
// The index flags are store-wide; pass -drop-vector-index-first and
// -postindex on exactly one worker.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/JyotiRSharma/hybrid-search/internal/config"
	"github.com/JyotiRSharma/hybrid-search/internal/domain"
	logpkg "github.com/JyotiRSharma/hybrid-search/internal/logger"
	"github.com/JyotiRSharma/hybrid-search/internal/metrics"
	"github.com/JyotiRSharma/hybrid-search/internal/store/postgres"
	backfilluc "github.com/JyotiRSharma/hybrid-search/internal/usecase/backfill"
	"github.com/JyotiRSharma/hybrid-search/internal/vectorizer"
)

func main() {
	var (
		dsn         = flag.String("dsn", "", "store DSN (default: database.dsn from config)")
		onlyMissing = flag.Bool("only-missing", false, "only process rows with embedding IS NULL")
		rowCap      = flag.Int("limit", 0, "cap total rows to process (0 = no cap)")
		fetchBatch  = flag.Int("fetch-batch", backfilluc.DefaultFetchBatch, "rows fetched from the store per iteration")
		encodeBatch = flag.Int("encode-batch", backfilluc.DefaultEncodeBatch, "vectorizer sub-batch size")
		cooldown    = flag.Duration("cooldown", backfilluc.DefaultCooldown, "sleep between iterations")
		workers     = flag.Int("workers", 1, "total workers for modulo sharding")
		me          = flag.Int("me", 0, "this worker id in [0..workers-1]")
		postIndex   = flag.Bool("postindex", false, "create vector/fulltext indexes + ANALYZE at end")
		dropFirst   = flag.Bool("drop-vector-index-first", false, "drop vector index before upsert to speed writes")
		skipEmpty   = flag.Bool("skip-empty", false, "skip rows whose content is empty")
	)
	flag.Parse()

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	if *dsn != "" {
		cfg.Database.DSN = *dsn
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterBackfillMetrics()

	store, err := postgres.Open(postgres.Config{
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		VectorDims:   cfg.Embedding.Dimensions,
		Logger:       logger,
	})
	if err != nil {
		logger.Fatal("Failed to create store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}

	// Confirm the connection target to avoid wrong-DB surprises.
	if info, err := store.ServerInfo(ctx); err == nil {
		logger.Info("Connected", zap.String("server", info))
	}

	var embedder domain.Vectorizer = vectorizer.NewLazy(
		cfg.Embedding.Dimensions, cfg.Embedding.Model,
		func() (domain.Vectorizer, error) {
			return vectorizer.New(cfg.Embedding, logger)
		},
	)

	coordinator := backfilluc.New(store, store, embedder, store.VectorDims(), logger)

	summary, err := coordinator.Run(ctx, backfilluc.Config{
		Selection: domain.Selection{
			OnlyMissing: *onlyMissing,
			Workers:     *workers,
			WorkerIndex: *me,
		},
		RowCap:               *rowCap,
		FetchBatch:           *fetchBatch,
		EncodeBatch:          *encodeBatch,
		Cooldown:             *cooldown,
		DropVectorIndexFirst: *dropFirst,
		PostIndex:            *postIndex,
		SkipEmpty:            *skipEmpty,
	})
	if err != nil {
		logger.Error("Backfill failed; rerun to resume from the last committed batch", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("Backfill finished",
		zap.Int("processed", summary.Processed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("pending", summary.Pending),
	)
}
