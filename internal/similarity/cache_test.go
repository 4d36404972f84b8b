package similarity

import "testing"

func TestResultCache_GetSet(t *testing.T) {
	c := newResultCache(2)
	if _, ok := c.Get(cacheKey("cat", 5)); ok {
		t.Error("hit on empty cache")
	}
	c.Set(cacheKey("cat", 5), []Result{{Word: "dog", Similarity: 0.9}})
	got, ok := c.Get(cacheKey("cat", 5))
	if !ok || len(got) != 1 || got[0].Word != "dog" {
		t.Errorf("got %v ok=%v", got, ok)
	}
	// Same token with a different n is a different key.
	if _, ok := c.Get(cacheKey("cat", 10)); ok {
		t.Error("hit for different topN")
	}
}

func TestResultCache_Eviction(t *testing.T) {
	c := newResultCache(2)
	c.Set("a", []Result{{Word: "a"}})
	c.Set("b", []Result{{Word: "b"}})
	c.Set("c", []Result{{Word: "c"}})
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("oldest entry should be evicted")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("newest entry missing")
	}
}

func TestResultCache_LRUOrder(t *testing.T) {
	c := newResultCache(2)
	c.Set("a", []Result{{Word: "a"}})
	c.Set("b", []Result{{Word: "b"}})
	c.Get("a") // refresh a
	c.Set("c", []Result{{Word: "c"}})
	if _, ok := c.Get("a"); !ok {
		t.Error("recently used entry evicted")
	}
	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry kept")
	}
}

func TestResultCache_ReturnsCopies(t *testing.T) {
	c := newResultCache(2)
	c.Set("a", []Result{{Word: "a", Similarity: 1}})
	got, _ := c.Get("a")
	got[0].Word = "mangled"
	again, _ := c.Get("a")
	if again[0].Word != "a" {
		t.Errorf("cache entry mutated: %v", again)
	}
}
