package utils

import "math"

// normEpsilon guards against division by zero when normalizing near-zero vectors.
const normEpsilon = 1e-12

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// NormalizeL2 normalizes the slice in place to unit L2 norm.
// Vectors with norm below epsilon are left unchanged.
func NormalizeL2(x []float32) {
	norm := L2Norm(x)
	if norm < normEpsilon {
		return
	}
	inv := float32(1.0 / norm)
	for i := range x {
		x[i] *= inv
	}
}

// InnerProduct returns the dot product of two vectors. For unit-normalized
// vectors this equals cosine similarity. Mismatched lengths return 0.
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}
