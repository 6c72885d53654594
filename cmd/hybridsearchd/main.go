package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/JyotiRSharma/hybrid-search/internal/config"
	"github.com/JyotiRSharma/hybrid-search/internal/domain"
	"github.com/JyotiRSharma/hybrid-search/internal/embcache"
	logpkg "github.com/JyotiRSharma/hybrid-search/internal/logger"
	"github.com/JyotiRSharma/hybrid-search/internal/metrics"
	"github.com/JyotiRSharma/hybrid-search/internal/store/postgres"
	chiTransport "github.com/JyotiRSharma/hybrid-search/internal/transport/chi"
	searchuc "github.com/JyotiRSharma/hybrid-search/internal/usecase/search"
	"github.com/JyotiRSharma/hybrid-search/internal/vectorizer"
	"github.com/JyotiRSharma/hybrid-search/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting hybrid-search API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("embedding_backend", cfg.Embedding.Backend),
	)

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

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register embedding metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()

	embedder := buildVectorizer(cfg, logger)

	// A model that disagrees with the store column is a configuration
	// error; fail now, not on the first query.
	if err := vectorizer.CheckDimensions(ctx, embedder, store.VectorDims()); err != nil {
		logger.Fatal("Vectorizer rejected", zap.Error(err))
	}
	logger.Info("Vectorizer ready",
		zap.String("model", embedder.Model()),
		zap.Int("dimensions", embedder.Dimensions()),
	)

	searchSvc := searchuc.New(store, embedder)

	server := chiTransport.NewServer(searchSvc, store, chiTransport.Defaults{
		KeywordWeight: cfg.Search.KeywordWeight,
		VectorWeight:  cfg.Search.VectorWeight,
	}, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildVectorizer assembles the embedder chain: backend -> cache,
// wrapped lazily so the model loads on first use, exactly once.
func buildVectorizer(cfg config.Config, logger *zap.Logger) domain.Vectorizer {
	var embedder domain.Vectorizer = vectorizer.NewLazy(
		cfg.Embedding.Dimensions, cfg.Embedding.Model,
		func() (domain.Vectorizer, error) {
			return vectorizer.New(cfg.Embedding, logger)
		},
	)

	if cfg.Cache.Enabled() {
		cached, err := embcache.New(embedder, embcache.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		}, metrics.EmbeddingCacheTotal, logger)
		if err != nil {
			logger.Fatal("Failed to connect embedding cache", zap.Error(err))
		}
		embedder = cached
		logger.Info("Embedding cache enabled", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	return embedder
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
