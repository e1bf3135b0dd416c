package cache

import (
	"errors"
	"testing"
	"time"
)

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	if _, ok := c.Get("a"); ok {
		t.Fatalf("oldest entry should have been evicted")
	}
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Fatalf("newest entry missing: %v %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("size: got %d", c.Size())
	}
}

func TestLRUCacheRecencyOnGet(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // refresh a
	c.Set("c", 3)

	if _, ok := c.Get("a"); !ok {
		t.Fatalf("recently read entry should survive eviction")
	}
	if _, ok := c.Get("b"); ok {
		t.Fatalf("least recently used entry should have been evicted")
	}
}

func TestLRUCacheTTL(t *testing.T) {
	c := NewLRUCache[int](10, 10*time.Millisecond)
	c.Set("a", 1)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Fatalf("expired entry should not be returned")
	}
	c.Set("b", 2)
	if n := c.CleanExpired(); n != 0 {
		t.Fatalf("fresh entries must not be cleaned, removed %d", n)
	}
}

func TestLRUCacheGetOrCompute(t *testing.T) {
	c := NewLRUCache[string](10, time.Minute)

	calls := 0
	compute := func() (string, error) {
		calls++
		return "value", nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrCompute("k", compute)
		if err != nil {
			t.Fatalf("get or compute: %v", err)
		}
		if v != "value" {
			t.Fatalf("got %q", v)
		}
	}
	if calls != 1 {
		t.Fatalf("compute should run once, ran %d times", calls)
	}

	wantErr := errors.New("boom")
	_, err := c.GetOrCompute("other", func() (string, error) { return "", wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("compute error should propagate, got %v", err)
	}
	if _, ok := c.Get("other"); ok {
		t.Fatalf("failed computations must not be cached")
	}
}
