// Package embedding holds helpers shared by the embedder implementations in
// its subpackages.
package embedding

import "math"

// Normalize converts a float32 embedding to float64 and scales it to unit
// length, so that dot product equals cosine similarity.
func Normalize(v []float32) []float64 {
	out := make([]float64, len(v))
	norm := 0.0
	for i, x := range v {
		out[i] = float64(x)
		norm += out[i] * out[i]
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return out
	}
	for i := range out {
		out[i] /= norm
	}
	return out
}
