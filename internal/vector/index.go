// Package vector provides an exact brute-force similarity index over
// normalized embeddings, with versioned persistence bundling the vector
// matrix and its parallel chunk metadata.
package vector

import (
	"sort"

	"github.com/geronlab/biorag/internal/errs"
	"github.com/geronlab/biorag/internal/models"
	"github.com/geronlab/biorag/pkg/utils"
)

// Result pairs an index row with its cosine similarity score.
type Result struct {
	Row   int
	Score float64 // cosine similarity in [-1, 1], higher = more similar
}

// Index holds a matrix of unit-normalized vectors and a parallel metadata
// sequence: row i corresponds to meta entry i. An Index is immutable after
// Build, so concurrent searches need no locking. Rebuilds produce a fresh
// Index that is swapped in through a Handle.
type Index struct {
	dimensions int
	vectors    [][]float32
	meta       []models.ChunkMeta
}

// Build constructs an index from a vector matrix and its parallel metadata.
// Rows are copied and normalized to unit length (near-zero rows are kept
// as-is rather than divided by zero). The matrix must be rectangular with at
// least one row and one column, and must align with meta.
func Build(vectors [][]float32, meta []models.ChunkMeta) (*Index, error) {
	const op = "vector.Build"
	if len(vectors) == 0 {
		return nil, errs.New(errs.CodeIndexBuild, op, "no vectors to index")
	}
	if len(vectors) != len(meta) {
		return nil, errs.Newf(errs.CodeIndexBuild, op, "vectors and metadata misaligned: %d vs %d", len(vectors), len(meta))
	}
	dims := len(vectors[0])
	if dims == 0 {
		return nil, errs.New(errs.CodeIndexBuild, op, "vectors must have at least one dimension")
	}

	rows := make([][]float32, len(vectors))
	for i, vec := range vectors {
		if len(vec) != dims {
			return nil, errs.Newf(errs.CodeIndexBuild, op, "row %d has dimension %d, expected %d", i, len(vec), dims)
		}
		cp := make([]float32, dims)
		copy(cp, vec)
		utils.NormalizeL2(cp)
		rows[i] = cp
	}

	metaCopy := make([]models.ChunkMeta, len(meta))
	copy(metaCopy, meta)

	return &Index{dimensions: dims, vectors: rows, meta: metaCopy}, nil
}

// Search returns the k highest-scoring rows for query in strictly descending
// score order, ties broken by ascending row index for determinism. k greater
// than the index size is capped silently; an empty index yields an empty
// result. The query is normalized before scoring.
func (ix *Index) Search(query []float32, k int) ([]Result, error) {
	const op = "vector.Search"
	if k <= 0 {
		return nil, errs.Newf(errs.CodeInvalidParameter, op, "k must be positive, got %d", k)
	}
	if len(query) != ix.dimensions {
		return nil, errs.Newf(errs.CodeDimensionMismatch, op, "query dimension %d, index dimension %d", len(query), ix.dimensions)
	}
	if len(ix.vectors) == 0 {
		return []Result{}, nil
	}

	q := make([]float32, len(query))
	copy(q, query)
	utils.NormalizeL2(q)

	results := make([]Result, len(ix.vectors))
	for i, vec := range ix.vectors {
		results[i] = Result{Row: i, Score: utils.InnerProduct(q, vec)}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Row < results[j].Row
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Dimensions returns the vector dimension.
func (ix *Index) Dimensions() int {
	return ix.dimensions
}

// Size returns the number of indexed rows.
func (ix *Index) Size() int {
	return len(ix.vectors)
}

// Meta returns the metadata entry for row. The bool is false when row is out
// of range.
func (ix *Index) Meta(row int) (models.ChunkMeta, bool) {
	if row < 0 || row >= len(ix.meta) {
		return models.ChunkMeta{}, false
	}
	return ix.meta[row], true
}
