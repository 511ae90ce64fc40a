package embedding

import (
	"context"
	"math"

	"github.com/geronlab/biorag/pkg/utils"
)

// Synthetic is a deterministic embedder with no model or network dependency.
// The same text always yields a bit-identical vector, which makes retrieval
// tests reproducible. Vectors are unit-normalized. The empty string maps to
// the uniform vector (every component equal before normalization), not an
// error.
type Synthetic struct {
	dimensions int
}

// NewSynthetic returns a synthetic embedder producing vectors of the given
// dimension (768 when non-positive, matching the model-backed default).
func NewSynthetic(dimensions int) *Synthetic {
	if dimensions <= 0 {
		dimensions = 768
	}
	return &Synthetic{dimensions: dimensions}
}

// Encode returns one deterministic hash-seeded vector per input text.
func (e *Synthetic) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors[i] = e.encodeOne(text)
	}
	return vectors, nil
}

func (e *Synthetic) encodeOne(text string) []float32 {
	h := HashString(text)
	vec := make([]float32, e.dimensions)
	for i := 0; i < e.dimensions; i++ {
		vec[i] = float32(math.Sin(float64(h*(i+1)))*0.1 + 0.01)
	}
	utils.NormalizeL2(vec)
	return vec
}

// Dimensions returns the embedding dimension.
func (e *Synthetic) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for the synthetic embedder.
func (e *Synthetic) Close() error {
	return nil
}
