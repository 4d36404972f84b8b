// Package similarity ranks vocabulary entries by cosine similarity to a query.
package similarity

import (
	"errors"
	"fmt"

	"github.com/viant/vec/search"

	"github.com/neill-k/w2vapi/internal/vocab"
)

// ErrInvalidInput indicates bad caller-supplied parameters (non-positive N,
// query vector with the wrong dimensionality). Rejected before computation.
var ErrInvalidInput = errors.New("invalid input")

// Result is a single ranked neighbor: a token and its cosine similarity to
// the query, in [-1, 1].
type Result struct {
	Word       string  `json:"word"`
	Similarity float64 `json:"similarity"`
}

// Ranker computes top-N most-similar tokens over a vocab.Store. The zero
// value is usable; WithCache adds an LRU cache for repeated token queries,
// which is safe because stores are immutable.
type Ranker struct {
	cache *resultCache
}

// NewRanker creates a ranker without a cache.
func NewRanker() *Ranker {
	return &Ranker{}
}

// WithCache enables an LRU cache of up to capacity ranked-result entries
// and returns the ranker.
func (r *Ranker) WithCache(capacity int) *Ranker {
	if capacity > 0 {
		r.cache = newResultCache(capacity)
	}
	return r
}

// MostSimilar returns the topN tokens most similar to queryToken, excluding
// the query token itself. Returns vocab.ErrNotFound when the token is absent
// and ErrInvalidInput when topN <= 0.
func (r *Ranker) MostSimilar(store *vocab.Store, queryToken string, topN int) ([]Result, error) {
	if topN <= 0 {
		return nil, fmt.Errorf("%w: topN must be positive, got %d", ErrInvalidInput, topN)
	}
	norm := vocab.NormalizeToken(queryToken)
	queryIdx := store.TokenIndex(norm)
	if queryIdx < 0 {
		return nil, vocab.ErrNotFound
	}

	var key string
	if r.cache != nil {
		key = cacheKey(norm, topN)
		if cached, ok := r.cache.Get(key); ok {
			return cached, nil
		}
	}

	query, magnitude := store.Row(queryIdx)
	results := rank(store, query, magnitude, topN, queryIdx)
	if r.cache != nil {
		r.cache.Set(key, results)
	}
	return results, nil
}

// MostSimilarToVector returns the topN tokens most similar to an arbitrary
// query vector, which need not exist in the store. When exclude is non-empty
// and present in the vocabulary, that entry is omitted from the results.
func (r *Ranker) MostSimilarToVector(store *vocab.Store, query []float32, topN int, exclude string) ([]Result, error) {
	if topN <= 0 {
		return nil, fmt.Errorf("%w: topN must be positive, got %d", ErrInvalidInput, topN)
	}
	if len(query) != store.Dimension() {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, store has %d",
			ErrInvalidInput, len(query), store.Dimension())
	}
	excludeIdx := -1
	if exclude != "" {
		excludeIdx = store.TokenIndex(exclude)
	}
	magnitude := search.Float32s(query).Magnitude()
	return rank(store, query, magnitude, topN, excludeIdx), nil
}

// rank scans every row once, keeping the topN candidates in a bounded
// min-heap (O(V log N)). Ties are broken by store position: the earlier
// entry wins, so identical inputs always produce identical output.
func rank(store *vocab.Store, query []float32, queryMagnitude float32, topN, excludeIdx int) []Result {
	q := search.Float32s(query)
	h := newTopN(topN)
	for i := 0; i < store.Size(); i++ {
		if i == excludeIdx {
			continue
		}
		row, magnitude := store.Row(i)
		// Zero-norm pairs are defined as similarity 0 to keep ranking
		// deterministic instead of producing NaN.
		score := 0.0
		if queryMagnitude != 0 && magnitude != 0 {
			score = 1 - float64(cosineDistance(q, row, queryMagnitude, magnitude))
		}
		h.offer(i, score)
	}

	ranked := h.sorted()
	results := make([]Result, len(ranked))
	for i, c := range ranked {
		results[i] = Result{Word: store.Token(c.index), Similarity: c.score}
	}
	return results
}
