package backfill

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/JyotiRSharma/hybrid-search/internal/domain"
	"github.com/JyotiRSharma/hybrid-search/internal/vectorizer"
)

// fakeStore is an in-memory stand-in for the Postgres store. It honors
// the selection semantics (only-missing, modulo sharding) and batch
// atomicity so the loop's contract can be exercised without a database.
type fakeStore struct {
	docs       []domain.Document
	embeddings map[int64][]float32

	fetchCalls  int
	upsertCalls int
	upsertErr   error
}

func newFakeStore(texts map[int64]string) *fakeStore {
	s := &fakeStore{embeddings: make(map[int64][]float32)}
	var ids []int64
	for id := range texts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		s.docs = append(s.docs, domain.Document{ID: id, MagazineID: 1, Content: texts[id]})
	}
	return s
}

func (s *fakeStore) owned(d domain.Document, sel domain.Selection) bool {
	if sel.OnlyMissing && s.embeddings[d.ID] != nil {
		return false
	}
	if sel.Workers > 1 && d.ID%int64(sel.Workers) != int64(sel.WorkerIndex) {
		return false
	}
	return true
}

func (s *fakeStore) CountPending(_ context.Context, sel domain.Selection) (int, error) {
	n := 0
	for _, d := range s.docs {
		if s.owned(d, sel) {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) FetchPending(_ context.Context, sel domain.Selection, cursor int64, limit int) ([]domain.Document, error) {
	s.fetchCalls++
	var out []domain.Document
	for _, d := range s.docs {
		if d.ID > cursor && s.owned(d, sel) {
			out = append(out, d)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *fakeStore) UpsertEmbeddings(_ context.Context, batch []domain.EmbeddingUpdate) error {
	s.upsertCalls++
	if s.upsertErr != nil {
		err := s.upsertErr
		s.upsertErr = nil
		return err
	}
	for _, u := range batch {
		s.embeddings[u.ID] = u.Vector
	}
	return nil
}

// fakeMaintainer records index lifecycle calls.
type fakeMaintainer struct {
	dropped   int
	rebuilt   int
	lastOrder []string
}

func (m *fakeMaintainer) DropVectorIndex(context.Context) error {
	m.dropped++
	m.lastOrder = append(m.lastOrder, "drop")
	return nil
}

func (m *fakeMaintainer) RebuildAndAnalyze(context.Context) error {
	m.rebuilt++
	m.lastOrder = append(m.lastOrder, "rebuild")
	return nil
}

const testDims = 16

func newTestCoordinator(t *testing.T, store Store, maint IndexMaintainer) *Coordinator {
	t.Helper()
	embed := vectorizer.NewReference("reference-v1", testDims)
	co := New(store, maint, embed, testDims, zap.NewNop())
	co.sleep = func(time.Duration) {}
	return co
}

func texts(n int) map[int64]string {
	m := make(map[int64]string, n)
	for i := 1; i <= n; i++ {
		m[int64(i)] = "document text number " + string(rune('a'+i))
	}
	return m
}

func TestRun_BatchesAndCompletes(t *testing.T) {
	// 5 pending docs with fetch-batch=2 complete in 3 iterations (2,2,1).
	store := newFakeStore(texts(5))
	co := newTestCoordinator(t, store, &fakeMaintainer{})

	summary, err := co.Run(context.Background(), Config{
		Selection:   domain.Selection{OnlyMissing: true},
		FetchBatch:  2,
		EncodeBatch: 1,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if store.fetchCalls != 3 {
		t.Errorf("fetch calls = %d, want 3", store.fetchCalls)
	}
	if summary.Processed != 5 {
		t.Errorf("processed = %d, want 5", summary.Processed)
	}
	if summary.Pending != 0 {
		t.Errorf("pending = %d, want 0", summary.Pending)
	}
	if len(store.embeddings) != 5 {
		t.Errorf("stored embeddings = %d, want 5", len(store.embeddings))
	}
	for id, vec := range store.embeddings {
		if len(vec) != testDims {
			t.Errorf("row %d embedding dims = %d, want %d", id, len(vec), testDims)
		}
	}
}

func TestRun_DimensionMismatchIsFatalBeforeAnyRow(t *testing.T) {
	store := newFakeStore(texts(3))
	embed := vectorizer.NewReference("reference-v1", testDims)
	co := New(store, &fakeMaintainer{}, embed, testDims+1, zap.NewNop())
	co.sleep = func(time.Duration) {}

	_, err := co.Run(context.Background(), Config{})
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if store.fetchCalls != 0 || store.upsertCalls != 0 {
		t.Error("rows were touched despite the fatal dimension mismatch")
	}
}

func TestRun_OnlyMissingNeverReprocesses(t *testing.T) {
	store := newFakeStore(texts(6))
	co := newTestCoordinator(t, store, &fakeMaintainer{})
	sel := domain.Selection{OnlyMissing: true}

	// Partial first pass.
	if _, err := co.Run(context.Background(), Config{Selection: sel, RowCap: 4, FetchBatch: 2}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	firstPass := make(map[int64][]float32, len(store.embeddings))
	for id, vec := range store.embeddings {
		firstPass[id] = append([]float32(nil), vec...)
	}
	if len(firstPass) != 4 {
		t.Fatalf("first pass embedded %d rows, want 4", len(firstPass))
	}

	// Second pass finishes the rest without touching the first four.
	summary, err := co.Run(context.Background(), Config{Selection: sel, FetchBatch: 2})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if summary.Processed != 2 {
		t.Errorf("second pass processed = %d, want 2", summary.Processed)
	}
	for id, vec := range firstPass {
		got := store.embeddings[id]
		for i := range vec {
			if got[i] != vec[i] {
				t.Fatalf("row %d re-embedded with a different vector", id)
			}
		}
	}
}

func TestRun_ReembeddingIsBitIdentical(t *testing.T) {
	store := newFakeStore(texts(3))
	co := newTestCoordinator(t, store, &fakeMaintainer{})

	// All-rows mode embeds everything twice across two runs.
	if _, err := co.Run(context.Background(), Config{}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first := make(map[int64][]float32, len(store.embeddings))
	for id, vec := range store.embeddings {
		first[id] = append([]float32(nil), vec...)
	}
	if _, err := co.Run(context.Background(), Config{}); err != nil {
		t.Fatalf("second run: %v", err)
	}
	for id, vec := range first {
		got := store.embeddings[id]
		for i := range vec {
			if got[i] != vec[i] {
				t.Fatalf("row %d not bit-identical on re-embed", id)
			}
		}
	}
}

func TestRun_ShardsPartitionWithoutOverlap(t *testing.T) {
	const workers = 3
	all := texts(10)

	processed := make(map[int64]int)
	for w := 0; w < workers; w++ {
		store := newFakeStore(all)
		co := newTestCoordinator(t, store, &fakeMaintainer{})
		_, err := co.Run(context.Background(), Config{
			Selection:  domain.Selection{OnlyMissing: true, Workers: workers, WorkerIndex: w},
			FetchBatch: 3,
		})
		if err != nil {
			t.Fatalf("worker %d: %v", w, err)
		}
		for id := range store.embeddings {
			processed[id]++
			if id%workers != int64(w) {
				t.Errorf("worker %d processed row %d outside its shard", w, id)
			}
		}
	}

	// Union covers the full pending set, no overlaps.
	if len(processed) != len(all) {
		t.Errorf("union covers %d rows, want %d", len(processed), len(all))
	}
	for id, n := range processed {
		if n != 1 {
			t.Errorf("row %d processed %d times", id, n)
		}
	}
}

func TestRun_FailedUpsertDoesNotAdvance(t *testing.T) {
	store := newFakeStore(texts(4))
	store.upsertErr = errors.New("connection reset")
	co := newTestCoordinator(t, store, &fakeMaintainer{})
	cfg := Config{Selection: domain.Selection{OnlyMissing: true}, FetchBatch: 2}

	summary, err := co.Run(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected run to abort on upsert failure")
	}
	if summary.Processed != 0 {
		t.Errorf("processed = %d after failed first batch, want 0", summary.Processed)
	}
	if len(store.embeddings) != 0 {
		t.Errorf("embeddings persisted from a failed batch: %d", len(store.embeddings))
	}

	// Restart is the retry mechanism: the rerun completes everything.
	summary, err = co.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if summary.Processed != 4 || summary.Pending != 0 {
		t.Errorf("rerun summary = %+v, want 4 processed, 0 pending", summary)
	}
}

func TestRun_SkipsEmptyContent(t *testing.T) {
	docs := texts(3)
	docs[2] = "   "
	store := newFakeStore(docs)
	co := newTestCoordinator(t, store, &fakeMaintainer{})

	summary, err := co.Run(context.Background(), Config{
		Selection: domain.Selection{OnlyMissing: true},
		SkipEmpty: true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Processed != 2 || summary.Skipped != 1 {
		t.Errorf("summary = %+v, want 2 processed, 1 skipped", summary)
	}
	if store.embeddings[2] != nil {
		t.Error("empty row was embedded")
	}
}

func TestRun_RowCap(t *testing.T) {
	store := newFakeStore(texts(5))
	co := newTestCoordinator(t, store, &fakeMaintainer{})

	summary, err := co.Run(context.Background(), Config{
		Selection:  domain.Selection{OnlyMissing: true},
		RowCap:     3,
		FetchBatch: 2,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Processed != 3 {
		t.Errorf("processed = %d, want 3", summary.Processed)
	}
	if summary.Pending != 2 {
		t.Errorf("pending = %d, want 2", summary.Pending)
	}
}

func TestRun_IndexLifecycle(t *testing.T) {
	t.Run("drop first and rebuild after", func(t *testing.T) {
		store := newFakeStore(texts(2))
		maint := &fakeMaintainer{}
		co := newTestCoordinator(t, store, maint)

		if _, err := co.Run(context.Background(), Config{
			DropVectorIndexFirst: true,
			PostIndex:            true,
		}); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if maint.dropped != 1 || maint.rebuilt != 1 {
			t.Errorf("drop=%d rebuild=%d, want 1/1", maint.dropped, maint.rebuilt)
		}
		if maint.lastOrder[0] != "drop" || maint.lastOrder[len(maint.lastOrder)-1] != "rebuild" {
			t.Errorf("lifecycle order = %v", maint.lastOrder)
		}
	})

	t.Run("nothing pending still rebuilds when asked", func(t *testing.T) {
		store := newFakeStore(nil)
		maint := &fakeMaintainer{}
		co := newTestCoordinator(t, store, maint)

		if _, err := co.Run(context.Background(), Config{PostIndex: true}); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if maint.rebuilt != 1 {
			t.Errorf("rebuilt = %d, want 1", maint.rebuilt)
		}
	})

	t.Run("no flags no calls", func(t *testing.T) {
		store := newFakeStore(texts(1))
		maint := &fakeMaintainer{}
		co := newTestCoordinator(t, store, maint)

		if _, err := co.Run(context.Background(), Config{}); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if maint.dropped != 0 || maint.rebuilt != 0 {
			t.Errorf("unexpected maintenance calls: drop=%d rebuild=%d", maint.dropped, maint.rebuilt)
		}
	})
}

func TestRun_InvalidWorkerIndex(t *testing.T) {
	store := newFakeStore(texts(1))
	co := newTestCoordinator(t, store, &fakeMaintainer{})

	_, err := co.Run(context.Background(), Config{
		Selection: domain.Selection{Workers: 2, WorkerIndex: 2},
	})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
