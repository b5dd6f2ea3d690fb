package embedding

import (
	"container/list"
	"sync"
)

// DefaultCacheSize mirrors the capacity the system has always run with;
// at 384 float32 dimensions this is ~1.5MB of vectors.
const DefaultCacheSize = 1000

type cacheKey struct {
	text  string
	title string
}

type cacheEntry struct {
	key    cacheKey
	vector []float32
}

// Cache is a bounded LRU for computed embeddings, keyed by the exact
// (text, title) pair. It is constructed once at process start and injected
// into the Engine. Entries are never invalidated: an edited text is a
// different key, not a stale hit.
//
// Cache is safe for concurrent use. Cached vectors are shared, not copied;
// callers must treat them as read-only.
type Cache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = most recently used
	items    map[cacheKey]*list.Element
}

// NewCache creates a Cache holding at most capacity entries.
// A non-positive capacity falls back to DefaultCacheSize.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &Cache{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[cacheKey]*list.Element, capacity),
	}
}

// Get returns the cached vector for (text, title) and marks it most
// recently used.
func (c *Cache) Get(text, title string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[cacheKey{text, title}]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).vector, true
}

// Put stores a vector for (text, title), evicting the least recently used
// entry when the cache is full.
func (c *Cache) Put(text, title string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey{text, title}
	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		el.Value.(*cacheEntry).vector = vector
		return
	}

	el := c.order.PushFront(&cacheEntry{key: key, vector: vector})
	c.items[key] = el

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).key)
	}
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
