package vectorizer

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/JyotiRSharma/hybrid-search/internal/config"
	"github.com/JyotiRSharma/hybrid-search/internal/domain"
	"go.uber.org/zap"
)

func TestReference_Deterministic(t *testing.T) {
	ref := NewReference("reference-v1", 64)
	ctx := context.Background()

	first, err := ref.Embed(ctx, "solar panels on the northern grid")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	second, err := ref.Embed(ctx, "solar panels on the northern grid")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	if len(first.Embedding) != 64 {
		t.Fatalf("dims = %d, want 64", len(first.Embedding))
	}
	for i := range first.Embedding {
		if first.Embedding[i] != second.Embedding[i] {
			t.Fatalf("component %d differs between identical inputs", i)
		}
	}
}

func TestReference_UnitNorm(t *testing.T) {
	ref := NewReference("reference-v1", 128)

	res, err := ref.Embed(context.Background(), "wind turbines and offshore capacity factors")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	var sum float64
	for _, f := range res.Embedding {
		sum += float64(f) * float64(f)
	}
	if math.Abs(math.Sqrt(sum)-1) > 1e-5 {
		t.Errorf("norm = %f, want 1", math.Sqrt(sum))
	}
}

func TestReference_EmptyTextYieldsZeroVector(t *testing.T) {
	ref := NewReference("reference-v1", 32)

	for _, text := range []string{"", "   ", "--- !!!"} {
		res, err := ref.Embed(context.Background(), text)
		if err != nil {
			t.Fatalf("Embed(%q): %v", text, err)
		}
		for i, f := range res.Embedding {
			if f != 0 {
				t.Errorf("Embed(%q) component %d = %f, want 0", text, i, f)
			}
		}
	}
}

func TestReference_TokenizationIsCaseInsensitive(t *testing.T) {
	ref := NewReference("reference-v1", 64)
	ctx := context.Background()

	a, _ := ref.Embed(ctx, "Hydrogen Storage")
	b, _ := ref.Embed(ctx, "hydrogen storage")
	for i := range a.Embedding {
		if a.Embedding[i] != b.Embedding[i] {
			t.Fatal("case variants produced different vectors")
		}
	}
}

func TestLazy_BuildsOnceUnderConcurrency(t *testing.T) {
	var builds atomic.Int32
	lazy := NewLazy(16, "reference-v1", func() (domain.Vectorizer, error) {
		builds.Add(1)
		return NewReference("reference-v1", 16), nil
	})

	// Metadata never forces the load.
	if lazy.Dimensions() != 16 || lazy.Model() != "reference-v1" {
		t.Fatal("metadata wrong before load")
	}
	if builds.Load() != 0 {
		t.Fatal("factory ran before first Embed")
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := lazy.Embed(context.Background(), "probe"); err != nil {
				t.Errorf("Embed: %v", err)
			}
		}()
	}
	wg.Wait()

	if builds.Load() != 1 {
		t.Errorf("factory ran %d times, want 1", builds.Load())
	}
}

func TestLazy_BuildFailureReachesEveryCaller(t *testing.T) {
	broken := errors.New("model download failed")
	lazy := NewLazy(16, "m", func() (domain.Vectorizer, error) {
		return nil, broken
	})

	for i := 0; i < 2; i++ {
		if _, err := lazy.Embed(context.Background(), "probe"); !errors.Is(err, broken) {
			t.Fatalf("call %d: expected build error, got %v", i, err)
		}
	}
}

func TestCheckDimensions(t *testing.T) {
	ctx := context.Background()

	if err := CheckDimensions(ctx, NewReference("m", 384), 384); err != nil {
		t.Errorf("matching dims: %v", err)
	}
	err := CheckDimensions(ctx, NewReference("m", 384), 768)
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestNormalize_ZeroVectorUnchanged(t *testing.T) {
	v := make([]float32, 8)
	for _, f := range Normalize(v) {
		if f != 0 {
			t.Fatal("zero vector changed")
		}
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(config.EmbeddingConfig{Backend: "gpu"}, zap.NewNop())
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
