package embedding

import (
	"fmt"
	"sync"
	"testing"
)

func TestCachePutGet(t *testing.T) {
	c := NewCache(10)

	if _, ok := c.Get("text", "title"); ok {
		t.Fatal("empty cache should miss")
	}

	c.Put("text", "title", []float32{1, 2, 3})
	vec, ok := c.Get("text", "title")
	if !ok {
		t.Fatal("expected hit")
	}
	if len(vec) != 3 || vec[0] != 1 {
		t.Errorf("unexpected vector %v", vec)
	}

	// Same text under a different title is a different key.
	if _, ok := c.Get("text", ""); ok {
		t.Error("(text, \"\") must not hit the (text, title) entry")
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewCache(2)
	c.Put("a", "", []float32{1})
	c.Put("b", "", []float32{2})

	// Touch "a" so "b" is the eviction candidate.
	c.Get("a", "")
	c.Put("c", "", []float32{3})

	if _, ok := c.Get("b", ""); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a", ""); !ok {
		t.Error("a should survive, it was used most recently")
	}
	if c.Len() != 2 {
		t.Errorf("cache must stay bounded, len=%d", c.Len())
	}
}

func TestCacheUpdateExisting(t *testing.T) {
	c := NewCache(2)
	c.Put("a", "", []float32{1})
	c.Put("a", "", []float32{9})

	vec, _ := c.Get("a", "")
	if vec[0] != 9 {
		t.Errorf("want updated vector, got %v", vec)
	}
	if c.Len() != 1 {
		t.Errorf("update must not grow the cache, len=%d", c.Len())
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := NewCache(50)
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := range 100 {
				key := fmt.Sprintf("text-%d", j%20)
				c.Put(key, "", []float32{float32(n)})
				c.Get(key, "")
			}
		}(i)
	}
	wg.Wait()

	if c.Len() > 50 {
		t.Errorf("cache exceeded capacity: %d", c.Len())
	}
}
