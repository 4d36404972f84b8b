package similarity

import (
	"container/heap"
	"sort"
)

// candidate is a store row paired with its similarity score.
type candidate struct {
	index int
	score float64
}

// candidateHeap is a min-heap by score so the weakest kept candidate sits at
// the root. Among equal scores the later store index is treated as smaller,
// which makes an incoming equal-scored candidate lose to an already-kept
// earlier one (first inserted wins).
type candidateHeap []candidate

func (h candidateHeap) Len() int { return len(h) }
func (h candidateHeap) Less(i, j int) bool {
	if h[i].score != h[j].score {
		return h[i].score < h[j].score
	}
	return h[i].index > h[j].index
}
func (h candidateHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *candidateHeap) Push(x any) {
	*h = append(*h, x.(candidate))
}

func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// topN keeps the n best candidates seen so far.
type topN struct {
	n    int
	heap candidateHeap
}

func newTopN(n int) *topN {
	return &topN{n: n, heap: make(candidateHeap, 0, n)}
}

// offer considers a candidate. Rows must be offered in increasing index
// order for the tie-break guarantee to hold.
func (t *topN) offer(index int, score float64) {
	if len(t.heap) < t.n {
		heap.Push(&t.heap, candidate{index: index, score: score})
		return
	}
	if score > t.heap[0].score {
		t.heap[0] = candidate{index: index, score: score}
		heap.Fix(&t.heap, 0)
	}
}

// sorted returns the kept candidates ordered by descending score, ties by
// ascending store index.
func (t *topN) sorted() []candidate {
	out := make([]candidate, len(t.heap))
	copy(out, t.heap)
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].index < out[j].index
	})
	return out
}
