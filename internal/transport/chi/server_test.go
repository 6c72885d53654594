package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JyotiRSharma/hybrid-search/internal/domain"
)

type mockSearch struct {
	searchFn func(ctx context.Context, req domain.SearchRequest) ([]domain.RankedResult, error)
}

func (m *mockSearch) Search(ctx context.Context, req domain.SearchRequest) ([]domain.RankedResult, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, req)
	}
	return nil, nil
}

type mockHealth struct {
	pingFn func(ctx context.Context) error
}

func (m *mockHealth) Ping(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}

func newTestRouter(search SearchService, health HealthChecker) http.Handler {
	srv := NewServer(search, health, Defaults{KeywordWeight: 0.5, VectorWeight: 0.5}, zap.NewNop())
	r := chirouter.NewRouter()
	srv.Routes(r)
	return r
}

func postSearch(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleSearch_OK(t *testing.T) {
	search := &mockSearch{
		searchFn: func(_ context.Context, req domain.SearchRequest) ([]domain.RankedResult, error) {
			return []domain.RankedResult{{
				ContentID: 12,
				Score:     0.83,
				Magazine:  domain.Magazine{ID: 4, Title: "Grid Monthly", Author: "R. Iyer", Category: "Energy"},
				Snippet:   "solar output peaked",
			}}, nil
		},
	}
	rec := postSearch(t, newTestRouter(search, &mockHealth{}), `{"query":"solar output","top_k":5}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	var resp searchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Query != "solar output" || resp.TopK != 5 {
		t.Errorf("echoed query/top_k = %q/%d", resp.Query, resp.TopK)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(resp.Results))
	}
	got := resp.Results[0]
	if got.ContentID != 12 || got.Magazine.Title != "Grid Monthly" || got.Snippet != "solar output peaked" {
		t.Errorf("unexpected result payload: %+v", got)
	}
}

func TestHandleSearch_DefaultsApplied(t *testing.T) {
	var captured domain.SearchRequest
	search := &mockSearch{
		searchFn: func(_ context.Context, req domain.SearchRequest) ([]domain.RankedResult, error) {
			captured = req
			return nil, nil
		},
	}
	rec := postSearch(t, newTestRouter(search, &mockHealth{}), `{"query":"wind"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if captured.TopK != domain.DefaultTopK {
		t.Errorf("topK = %d, want %d", captured.TopK, domain.DefaultTopK)
	}
	if captured.KeywordWeight != 0.5 || captured.VectorWeight != 0.5 {
		t.Errorf("weights = %g/%g, want 0.5/0.5", captured.KeywordWeight, captured.VectorWeight)
	}
}

func TestHandleSearch_ExplicitZeroWeightKept(t *testing.T) {
	var captured domain.SearchRequest
	search := &mockSearch{
		searchFn: func(_ context.Context, req domain.SearchRequest) ([]domain.RankedResult, error) {
			captured = req
			return nil, nil
		},
	}
	postSearch(t, newTestRouter(search, &mockHealth{}), `{"query":"wind","vec_weight":0}`)

	// An explicit zero must not be mistaken for "unset".
	if captured.VectorWeight != 0 {
		t.Errorf("vec weight = %g, want 0", captured.VectorWeight)
	}
	if captured.KeywordWeight != 0.5 {
		t.Errorf("kw weight = %g, want default 0.5", captured.KeywordWeight)
	}
}

func TestHandleSearch_ErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid argument", domain.ErrInvalidArgument, http.StatusBadRequest, "invalid_argument"},
		{"embedding provider", domain.ErrEmbeddingProviderError, http.StatusBadGateway, "embedding_unavailable"},
		{"store unavailable", domain.ErrStoreUnavailable, http.StatusServiceUnavailable, "store_unavailable"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			search := &mockSearch{
				searchFn: func(_ context.Context, _ domain.SearchRequest) ([]domain.RankedResult, error) {
					return nil, tc.err
				},
			}
			rec := postSearch(t, newTestRouter(search, &mockHealth{}), `{"query":"x"}`)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if resp.Code != tc.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tc.wantCode)
			}
		})
	}
}

func TestHandleSearch_TransientDetailNotLeaked(t *testing.T) {
	search := &mockSearch{
		searchFn: func(_ context.Context, _ domain.SearchRequest) ([]domain.RankedResult, error) {
			return nil, errors.New("pq: password authentication failed for user admin")
		},
	}
	rec := postSearch(t, newTestRouter(search, &mockHealth{}), `{"query":"x"}`)

	if strings.Contains(rec.Body.String(), "password") {
		t.Error("internal error detail leaked to the caller")
	}
}

func TestHandleSearch_MalformedBody(t *testing.T) {
	rec := postSearch(t, newTestRouter(&mockSearch{}, &mockHealth{}), `{"query":`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleHealthz(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		newTestRouter(&mockSearch{}, &mockHealth{}).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("store down", func(t *testing.T) {
		health := &mockHealth{pingFn: func(context.Context) error { return errors.New("dial tcp: refused") }}
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		newTestRouter(&mockSearch{}, health).ServeHTTP(rec, req)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rec.Code)
		}
	})
}
