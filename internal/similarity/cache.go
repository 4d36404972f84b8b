package similarity

import (
	"container/list"
	"strconv"
	"sync"
)

// resultCache is an LRU cache of ranked results keyed by normalized token
// and topN. Entries never go stale because the underlying store is immutable.
type resultCache struct {
	capacity int
	cache    map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

type cacheEntry struct {
	key   string
	value []Result
}

func newResultCache(capacity int) *resultCache {
	return &resultCache{
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

func cacheKey(token string, topN int) string {
	return token + "\x00" + strconv.Itoa(topN)
}

// Get returns a copy of the cached results for key if present.
func (c *resultCache) Get(key string) ([]Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.cache[key]
	if !ok {
		return nil, false
	}
	c.lru.MoveToFront(elem)
	cached := elem.Value.(*cacheEntry).value
	out := make([]Result, len(cached))
	copy(out, cached)
	return out, true
}

// Set stores a copy of the results for key, evicting the oldest entry if at
// capacity. Copying on both sides keeps callers from mutating cached entries.
func (c *resultCache) Set(key string, value []Result) {
	stored := make([]Result, len(value))
	copy(stored, value)

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = stored
		return
	}

	elem := c.lru.PushFront(&cacheEntry{key: key, value: stored})
	c.cache[key] = elem

	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Len returns the number of cached entries.
func (c *resultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
