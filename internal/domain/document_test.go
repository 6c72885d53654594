package domain

import (
	"strings"
	"testing"
)

func TestTruncateForEmbedding(t *testing.T) {
	short := Document{Content: "brief article"}
	if got := short.TruncateForEmbedding(); got != "brief article" {
		t.Errorf("short content changed: %q", got)
	}

	long := Document{Content: strings.Repeat("x", MaxEmbedChars+500)}
	if got := long.TruncateForEmbedding(); len(got) != MaxEmbedChars {
		t.Errorf("truncated length = %d, want %d", len(got), MaxEmbedChars)
	}
}

func TestSearchRequestValidate_Bounds(t *testing.T) {
	req := SearchRequest{Query: "q", TopK: MaxTopK, KeywordWeight: 1, VectorWeight: 0}
	if err := req.Validate(); err != nil {
		t.Errorf("boundary values rejected: %v", err)
	}
	req.TopK = MaxTopK + 1
	if err := req.Validate(); err == nil {
		t.Error("topK above max accepted")
	}
}
