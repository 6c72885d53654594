// Package chi exposes the query API over HTTP. The transport is a thin
// boundary: decode, validate via the usecase, map errors, encode.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/JyotiRSharma/hybrid-search/internal/domain"
	"github.com/JyotiRSharma/hybrid-search/internal/logger"
)

// SearchService executes hybrid queries.
type SearchService interface {
	Search(ctx context.Context, req domain.SearchRequest) ([]domain.RankedResult, error)
}

// HealthChecker reports store connectivity.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Defaults are applied to request fields the caller leaves unset.
type Defaults struct {
	KeywordWeight float64
	VectorWeight  float64
}

// Server holds the HTTP handlers.
type Server struct {
	search   SearchService
	health   HealthChecker
	defaults Defaults
	logger   *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(search SearchService, health HealthChecker, defaults Defaults, logger *zap.Logger) *Server {
	return &Server{search: search, health: health, defaults: defaults, logger: logger}
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Post("/search", s.handleSearch)
	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())
}

type searchRequest struct {
	Query     string   `json:"query"`
	TopK      *int     `json:"top_k,omitempty"`
	KwWeight  *float64 `json:"kw_weight,omitempty"`
	VecWeight *float64 `json:"vec_weight,omitempty"`
}

type magazineResponse struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Category string `json:"category"`
}

type resultResponse struct {
	ContentID int64            `json:"content_id"`
	Score     float64          `json:"score"`
	Magazine  magazineResponse `json:"magazine"`
	Snippet   string           `json:"snippet"`
}

type searchResponse struct {
	Query   string           `json:"query"`
	TopK    int              `json:"top_k"`
	Results []resultResponse `json:"results"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	domReq := domain.SearchRequest{
		Query:         req.Query,
		TopK:          domain.DefaultTopK,
		KeywordWeight: s.defaults.KeywordWeight,
		VectorWeight:  s.defaults.VectorWeight,
	}
	if req.TopK != nil {
		domReq.TopK = *req.TopK
	}
	if req.KwWeight != nil {
		domReq.KeywordWeight = *req.KwWeight
	}
	if req.VecWeight != nil {
		domReq.VectorWeight = *req.VecWeight
	}

	results, err := s.search.Search(r.Context(), domReq)
	if err != nil {
		s.writeSearchError(r.Context(), w, err)
		return
	}

	resp := searchResponse{
		Query:   domReq.Query,
		TopK:    domReq.TopK,
		Results: make([]resultResponse, 0, len(results)),
	}
	for _, res := range results {
		resp.Results = append(resp.Results, resultResponse{
			ContentID: res.ContentID,
			Score:     res.Score,
			Magazine: magazineResponse{
				ID:       res.Magazine.ID,
				Title:    res.Magazine.Title,
				Author:   res.Magazine.Author,
				Category: res.Magazine.Category,
			},
			Snippet: res.Snippet,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.health.Ping(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "store not reachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeSearchError maps the error taxonomy onto HTTP statuses. Invalid
// input carries its detail; transient failures stay generic so internals
// never leak to callers.
func (s *Server) writeSearchError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, domain.ErrEmbeddingProviderError):
		logger.FromContext(ctx).Error("embedding backend failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "embedding_unavailable", "embedding backend failed; retry later")
	case errors.Is(err, domain.ErrStoreUnavailable):
		logger.FromContext(ctx).Error("store failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "search backend failed; retry later")
	default:
		logger.FromContext(ctx).Error("search failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
