// Package vocab provides the immutable word-embedding vocabulary store.
package vocab

import (
	"fmt"
	"strings"

	"github.com/viant/vec/search"
)

// Store maps normalized tokens to fixed-dimension embedding vectors.
// It is built once by a Source and never mutated afterwards, so it is safe
// for unlimited concurrent reads without locking.
type Store struct {
	dimensions int
	tokens     []string
	index      map[string]int
	vectors    []float32 // row-major, len == len(tokens)*dimensions
	magnitudes []float32 // L2 norm per row, precomputed for ranking
}

// NormalizeToken lowercases and trims a token. All lookups apply it, so
// "CAT" and " cat " resolve to the same entry as "cat".
func NormalizeToken(token string) string {
	return strings.ToLower(strings.TrimSpace(token))
}

// NewStore builds a store from parallel token and vector slices. The tokens'
// order defines the stable iteration order used for tie-breaking in ranking.
// It rejects an empty vocabulary, mixed dimensionalities, and tokens that are
// empty or duplicated after normalization.
func NewStore(tokens []string, vectors [][]float32) (*Store, error) {
	if len(tokens) != len(vectors) {
		return nil, fmt.Errorf("tokens and vectors length mismatch: %d vs %d", len(tokens), len(vectors))
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty vocabulary")
	}
	dimensions := len(vectors[0])
	if dimensions == 0 {
		return nil, fmt.Errorf("zero-dimension vectors")
	}

	s := &Store{
		dimensions: dimensions,
		tokens:     make([]string, len(tokens)),
		index:      make(map[string]int, len(tokens)),
		vectors:    make([]float32, len(tokens)*dimensions),
		magnitudes: make([]float32, len(tokens)),
	}
	for i, token := range tokens {
		norm := NormalizeToken(token)
		if norm == "" {
			return nil, fmt.Errorf("entry %d: empty token", i)
		}
		if _, exists := s.index[norm]; exists {
			return nil, fmt.Errorf("entry %d: duplicate token %q", i, norm)
		}
		if len(vectors[i]) != dimensions {
			return nil, fmt.Errorf("entry %d (%q): vector dimension mismatch: got %d, expected %d",
				i, norm, len(vectors[i]), dimensions)
		}
		s.tokens[i] = norm
		s.index[norm] = i
		row := s.vectors[i*dimensions : (i+1)*dimensions]
		copy(row, vectors[i])
		s.magnitudes[i] = search.Float32s(row).Magnitude()
	}
	return s, nil
}

// Lookup returns a copy of the vector for token, normalizing it first.
// Returns ErrNotFound when the token is not in the vocabulary.
func (s *Store) Lookup(token string) ([]float32, error) {
	i, ok := s.index[NormalizeToken(token)]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]float32, s.dimensions)
	copy(out, s.row(i))
	return out, nil
}

// Contains reports whether token is in the vocabulary after normalization.
func (s *Store) Contains(token string) bool {
	_, ok := s.index[NormalizeToken(token)]
	return ok
}

// Dimension returns the fixed vector dimensionality D.
func (s *Store) Dimension() int {
	return s.dimensions
}

// Size returns the vocabulary cardinality.
func (s *Store) Size() int {
	return len(s.tokens)
}

// Token returns the normalized token at store position i.
func (s *Store) Token(i int) string {
	return s.tokens[i]
}

// TokenIndex returns the store position of token, or -1 when absent.
func (s *Store) TokenIndex(token string) int {
	i, ok := s.index[NormalizeToken(token)]
	if !ok {
		return -1
	}
	return i
}

// row returns the backing slice for row i. Callers must not mutate it;
// the ranking hot loop uses it to avoid per-row copies.
func (s *Store) row(i int) []float32 {
	return s.vectors[i*s.dimensions : (i+1)*s.dimensions]
}

// Row exposes the backing vector and its precomputed magnitude for row i.
// The returned slice must be treated as read-only.
func (s *Store) Row(i int) ([]float32, float32) {
	return s.row(i), s.magnitudes[i]
}
