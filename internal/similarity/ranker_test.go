package similarity

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/neill-k/w2vapi/internal/vocab"
)

func testStore(t *testing.T) *vocab.Store {
	t.Helper()
	s, err := vocab.NewStore(
		[]string{"cat", "dog", "car"},
		[][]float32{{1, 0}, {0.9, 0.1}, {0, 1}},
	)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestMostSimilar_Example(t *testing.T) {
	store := testStore(t)
	results, err := NewRanker().MostSimilar(store, "cat", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].Word != "dog" {
		t.Errorf("top neighbor = %q, want dog", results[0].Word)
	}
	// cos([1,0],[0.9,0.1]) = 0.9/sqrt(0.82) ~ 0.9939
	if math.Abs(results[0].Similarity-0.9939) > 1e-3 {
		t.Errorf("similarity = %f, want ~0.994", results[0].Similarity)
	}
}

func TestMostSimilar_ExcludesQueryToken(t *testing.T) {
	store := testStore(t)
	results, err := NewRanker().MostSimilar(store, "cat", 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.Word == "cat" {
			t.Error("query token appears in its own results")
		}
	}
}

func TestMostSimilar_LengthAndOrder(t *testing.T) {
	store := testStore(t)
	r := NewRanker()
	for _, n := range []int{1, 2, 3, 10} {
		results, err := r.MostSimilar(store, "cat", n)
		if err != nil {
			t.Fatal(err)
		}
		want := n
		if max := store.Size() - 1; want > max {
			want = max
		}
		if len(results) != want {
			t.Errorf("n=%d: got %d results, want %d", n, len(results), want)
		}
		for i := 1; i < len(results); i++ {
			if results[i].Similarity > results[i-1].Similarity {
				t.Errorf("n=%d: results not sorted at %d: %v", n, i, results)
			}
		}
	}
}

func TestMostSimilar_Deterministic(t *testing.T) {
	store := testStore(t)
	r := NewRanker()
	first, err := r.MostSimilar(store, "cat", 2)
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.MostSimilar(store, "cat", 2)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("non-deterministic output: %v vs %v", first, second)
	}
}

func TestMostSimilar_TieBreakByStoreOrder(t *testing.T) {
	store, err := vocab.NewStore(
		[]string{"q", "first", "second", "third"},
		[][]float32{{1, 0}, {2, 0}, {3, 0}, {4, 0}},
	)
	if err != nil {
		t.Fatal(err)
	}
	r := NewRanker()

	// All candidates have similarity exactly 1; order must follow store position.
	results, err := r.MostSimilar(store, "q", 3)
	if err != nil {
		t.Fatal(err)
	}
	got := []string{results[0].Word, results[1].Word, results[2].Word}
	want := []string{"first", "second", "third"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tie order = %v, want %v", got, want)
	}

	// With n smaller than the tie group, the earliest entries win.
	results, err = r.MostSimilar(store, "q", 2)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Word != "first" || results[1].Word != "second" {
		t.Errorf("bounded tie order = %v", results)
	}
}

func TestMostSimilar_NotFound(t *testing.T) {
	store := testStore(t)
	_, err := NewRanker().MostSimilar(store, "giraffe", 5)
	if !errors.Is(err, vocab.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMostSimilar_InvalidTopN(t *testing.T) {
	store := testStore(t)
	for _, n := range []int{0, -1} {
		_, err := NewRanker().MostSimilar(store, "cat", n)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("n=%d: err = %v, want ErrInvalidInput", n, err)
		}
	}
}

func TestMostSimilar_NormalizesQuery(t *testing.T) {
	store := testStore(t)
	r := NewRanker()
	a, err := r.MostSimilar(store, "CAT", 2)
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.MostSimilar(store, " cat ", 2)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("normalized queries differ: %v vs %v", a, b)
	}
}

func TestMostSimilarToVector_SelfSimilarity(t *testing.T) {
	store := testStore(t)
	query, _ := store.Lookup("dog")
	results, err := NewRanker().MostSimilarToVector(store, query, 1, "")
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Word != "dog" {
		t.Fatalf("top = %q, want dog", results[0].Word)
	}
	if math.Abs(results[0].Similarity-1.0) > 1e-6 {
		t.Errorf("self similarity = %.9f, want 1.0", results[0].Similarity)
	}
}

func TestMostSimilarToVector_Exclude(t *testing.T) {
	store := testStore(t)
	query, _ := store.Lookup("dog")
	results, err := NewRanker().MostSimilarToVector(store, query, 10, "dog")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != store.Size()-1 {
		t.Errorf("got %d results", len(results))
	}
	for _, r := range results {
		if r.Word == "dog" {
			t.Error("excluded token present in results")
		}
	}
}

func TestMostSimilarToVector_DimensionMismatch(t *testing.T) {
	store := testStore(t)
	_, err := NewRanker().MostSimilarToVector(store, []float32{1, 2, 3}, 5, "")
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestMostSimilarToVector_UnknownVector(t *testing.T) {
	// The query vector does not need to exist in the store.
	store := testStore(t)
	results, err := NewRanker().MostSimilarToVector(store, []float32{0.5, 0.5}, 3, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Errorf("got %d results", len(results))
	}
}

func TestZeroVectorScoresZero(t *testing.T) {
	store, err := vocab.NewStore(
		[]string{"zero", "x", "y"},
		[][]float32{{0, 0}, {1, 0}, {0, 1}},
	)
	if err != nil {
		t.Fatal(err)
	}
	results, err := NewRanker().MostSimilar(store, "zero", 2)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.Similarity != 0 {
			t.Errorf("%q similarity = %f, want 0 for zero-norm query", r.Word, r.Similarity)
		}
	}
	// The zero vector also ranks (at score 0) for other queries rather than
	// being dropped or producing NaN.
	results, err = NewRanker().MostSimilar(store, "x", 2)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if math.IsNaN(r.Similarity) {
			t.Errorf("%q similarity is NaN", r.Word)
		}
	}
}

func TestRanker_CachedResultsMatch(t *testing.T) {
	store := testStore(t)
	r := NewRanker().WithCache(16)
	first, err := r.MostSimilar(store, "cat", 2)
	if err != nil {
		t.Fatal(err)
	}
	// Mutating the returned slice must not poison the cache.
	first[0].Word = "mangled"
	second, err := r.MostSimilar(store, "cat", 2)
	if err != nil {
		t.Fatal(err)
	}
	if second[0].Word != "dog" {
		t.Errorf("cached result mutated: %v", second)
	}
}
