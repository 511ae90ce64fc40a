package vector

import (
	"math"
	"testing"

	"github.com/geronlab/biorag/internal/errs"
	"github.com/geronlab/biorag/internal/models"
)

func metaFor(pmids ...string) []models.ChunkMeta {
	meta := make([]models.ChunkMeta, len(pmids))
	for i, pmid := range pmids {
		meta[i] = models.ChunkMeta{ID: pmid + "_0", PMID: pmid, ChunkIndex: 0}
	}
	return meta
}

func TestBuild_Normalizes(t *testing.T) {
	ix, err := Build([][]float32{{3, 4}, {0, 2}}, metaFor("1", "2"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if ix.Size() != 2 || ix.Dimensions() != 2 {
		t.Fatalf("size=%d dims=%d", ix.Size(), ix.Dimensions())
	}
	// A search with the first row itself must score ~1.0.
	results, err := ix.Search([]float32{3, 4}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(results[0].Score-1.0) > 1e-6 {
		t.Errorf("self-similarity: got %f, want 1.0", results[0].Score)
	}
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name    string
		vectors [][]float32
		meta    []models.ChunkMeta
	}{
		{"no rows", nil, nil},
		{"zero columns", [][]float32{{}}, metaFor("1")},
		{"ragged rows", [][]float32{{1, 0}, {1}}, metaFor("1", "2")},
		{"misaligned metadata", [][]float32{{1, 0}}, metaFor("1", "2")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.vectors, tt.meta)
			if !errs.HasCode(err, errs.CodeIndexBuild) {
				t.Errorf("Build() = %v, want INDEX_BUILD_FAILED", err)
			}
		})
	}
}

func TestBuild_ZeroRowKept(t *testing.T) {
	// A zero row cannot be normalized; it stays zero instead of dividing by zero.
	ix, err := Build([][]float32{{0, 0}, {1, 0}}, metaFor("1", "2"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	results, err := ix.Search([]float32{1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Row != 1 || results[1].Row != 0 {
		t.Errorf("unexpected order: %+v", results)
	}
	if results[1].Score != 0 {
		t.Errorf("zero row should score 0, got %f", results[1].Score)
	}
}

func TestSearch_Ordering(t *testing.T) {
	ix, err := Build([][]float32{
		{0, 1, 0},
		{1, 0, 0},
		{0.9, 0.1, 0},
	}, metaFor("a", "b", "c"))
	if err != nil {
		t.Fatal(err)
	}
	results, err := ix.Search([]float32{1, 0, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Row != 1 || results[1].Row != 2 || results[2].Row != 0 {
		t.Errorf("order: got %+v", results)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("scores not descending at %d: %+v", i, results)
		}
	}
}

func TestSearch_TiesBrokenByRow(t *testing.T) {
	// Identical rows tie exactly; lower row index must sort first.
	ix, err := Build([][]float32{
		{1, 0},
		{1, 0},
		{1, 0},
	}, metaFor("a", "b", "c"))
	if err != nil {
		t.Fatal(err)
	}
	results, err := ix.Search([]float32{1, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range results {
		if r.Row != i {
			t.Errorf("tie at position %d resolved to row %d", i, r.Row)
		}
	}
}

func TestSearch_KExceedsSize(t *testing.T) {
	ix, err := Build([][]float32{{1, 0}, {0, 1}, {1, 1}}, metaFor("a", "b", "c"))
	if err != nil {
		t.Fatal(err)
	}
	results, err := ix.Search([]float32{1, 0}, 100)
	if err != nil {
		t.Fatalf("over-asking should not error: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("got %d results, want 3", len(results))
	}
}

func TestSearch_Errors(t *testing.T) {
	ix, err := Build([][]float32{{1, 0}}, metaFor("a"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ix.Search([]float32{1, 0}, 0); !errs.HasCode(err, errs.CodeInvalidParameter) {
		t.Errorf("k=0: got %v, want INVALID_PARAMETER", err)
	}
	if _, err := ix.Search([]float32{1, 0}, -5); !errs.HasCode(err, errs.CodeInvalidParameter) {
		t.Errorf("k<0: got %v, want INVALID_PARAMETER", err)
	}
	if _, err := ix.Search([]float32{1, 0, 0}, 1); !errs.HasCode(err, errs.CodeDimensionMismatch) {
		t.Errorf("wrong dimension: got %v, want DIMENSION_MISMATCH", err)
	}
}

func TestMeta_Alignment(t *testing.T) {
	meta := []models.ChunkMeta{
		{ID: "33495399_0", PMID: "33495399", Title: "Rapamycin", ChunkText: "rapamycin extends lifespan"},
		{ID: "29989283_0", PMID: "29989283", Title: "Metformin", ChunkText: "metformin glucose"},
	}
	ix, err := Build([][]float32{{1, 0}, {0, 1}}, meta)
	if err != nil {
		t.Fatal(err)
	}
	m, ok := ix.Meta(1)
	if !ok || m.PMID != "29989283" {
		t.Errorf("Meta(1) = %+v, %v", m, ok)
	}
	if _, ok := ix.Meta(2); ok {
		t.Error("Meta out of range should return false")
	}
	if _, ok := ix.Meta(-1); ok {
		t.Error("Meta(-1) should return false")
	}
}
