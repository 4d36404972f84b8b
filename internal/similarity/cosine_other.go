//go:build !arm64

package similarity

import "github.com/viant/vec/search"

// cosineDistance returns the cosine distance between query and row using the
// precomputed magnitudes. Off arm64 viant/vec only exports the pure-Go
// fallback, under a different name than the assembly-backed method.
func cosineDistance(query search.Float32s, row []float32, queryMagnitude, rowMagnitude float32) float32 {
	return query.CosineDistanceWithMagnitudesNeon(row, queryMagnitude, rowMagnitude)
}
