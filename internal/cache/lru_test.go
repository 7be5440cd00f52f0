package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestLRUEvictsOldest(t *testing.T) {
	c := NewLRUCache[string](2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")

	// Touch "a" so "b" becomes the eviction candidate.
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a")
	}
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should survive")
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d, want 2", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	c := NewLRUCache[int](10, 10*time.Millisecond)
	c.Set("x", 42)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("x"); ok {
		t.Fatal("expired entry should miss")
	}

	c.Set("y", 1)
	c.Set("z", 2)
	time.Sleep(20 * time.Millisecond)
	if n := c.CleanExpired(); n != 2 {
		t.Fatalf("cleaned %d, want 2", n)
	}
	if c.Size() != 0 {
		t.Fatalf("size = %d, want 0", c.Size())
	}
}

func TestDeletePrefix(t *testing.T) {
	c := NewLRUCache[string](100, time.Minute)
	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("customer:7:page:%d", i), "html")
	}
	c.Set("customer:71:page:0", "html")
	c.Set("dashboard", "html")

	if n := c.DeletePrefix("customer:7:"); n != 3 {
		t.Fatalf("removed %d, want 3", n)
	}
	if _, ok := c.Get("customer:71:page:0"); !ok {
		t.Fatal("unrelated customer entry should survive")
	}
	if _, ok := c.Get("dashboard"); !ok {
		t.Fatal("dashboard entry should survive")
	}
}
