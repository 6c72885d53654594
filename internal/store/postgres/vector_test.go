package postgres

import (
	"testing"

	"github.com/JyotiRSharma/hybrid-search/internal/domain"
)

func TestVectorLiteralRoundTrip(t *testing.T) {
	in := []float32{0.25, -1, 0, 3.5e-4, 1.0000001}

	lit, err := encodeVectorLiteral(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := parseVectorLiteral(lit)
	if err != nil {
		t.Fatalf("parse %q: %v", lit, err)
	}
	if len(out) != len(in) {
		t.Fatalf("length = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("component %d = %v, want %v", i, out[i], in[i])
		}
	}
}

func TestEncodeVectorLiteral_Empty(t *testing.T) {
	if _, err := encodeVectorLiteral(nil); err == nil {
		t.Fatal("expected error for empty vector")
	}
}

func TestParseVectorLiteral_Malformed(t *testing.T) {
	for _, lit := range []string{"", "[]", "1,2,3", "[1,x,3]", "[1,2"} {
		if _, err := parseVectorLiteral(lit); err == nil {
			t.Errorf("parse %q: expected error", lit)
		}
	}
}

func TestSelectionClause(t *testing.T) {
	cases := []struct {
		name     string
		sel      domain.Selection
		next     int
		want     string
		wantArgs int
	}{
		{
			name: "only missing single worker",
			sel:  domain.Selection{OnlyMissing: true, Workers: 1},
			next: 1,
			want: "embedding IS NULL",
		},
		{
			name: "all rows single worker",
			sel:  domain.Selection{Workers: 1},
			next: 1,
			want: "TRUE",
		},
		{
			name:     "sharded",
			sel:      domain.Selection{OnlyMissing: true, Workers: 4, WorkerIndex: 2},
			next:     2,
			want:     "embedding IS NULL AND mod(id, $2) = $3",
			wantArgs: 2,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clause, args := selectionClause(tc.sel, tc.next)
			if clause != tc.want {
				t.Errorf("clause = %q, want %q", clause, tc.want)
			}
			if len(args) != tc.wantArgs {
				t.Errorf("args = %d, want %d", len(args), tc.wantArgs)
			}
		})
	}
}
