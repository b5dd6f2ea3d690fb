package embedding

import "math"

// Mean returns the element-wise arithmetic mean of the given vectors.
// All vectors must share one dimension; the result is nil for no input.
func Mean(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	out := make([]float32, len(vectors[0]))
	for _, v := range vectors {
		for i, x := range v {
			out[i] += x
		}
	}
	n := float32(len(vectors))
	for i := range out {
		out[i] /= n
	}
	return out
}

// WeightedSum returns sum(weights[i] * vectors[i]). Used for the blended
// link embedding (relation name plus both endpoints). len(weights) must
// equal len(vectors); the result is nil for no input.
func WeightedSum(weights []float32, vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	out := make([]float32, len(vectors[0]))
	for i, v := range vectors {
		w := weights[i]
		for j, x := range v {
			out[j] += w * x
		}
	}
	return out
}

// CosineDistance returns 1 - cos(a, b), the same metric pgvector's <=>
// operator computes, so in-memory re-ranking agrees with SQL ordering.
// Distance to a zero vector is defined as 1 (orthogonal).
func CosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
