//go:build arm64

package similarity

import "github.com/viant/vec/search"

// cosineDistance returns the cosine distance between query and row using the
// precomputed magnitudes. On arm64 viant/vec dispatches to its NEON/SVE
// assembly kernels.
func cosineDistance(query search.Float32s, row []float32, queryMagnitude, rowMagnitude float32) float32 {
	return query.CosineDistanceWithMagnitude(row, queryMagnitude, rowMagnitude)
}
