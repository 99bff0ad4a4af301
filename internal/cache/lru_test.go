package cache

import (
	"context"
	"testing"
	"time"

	"veraz/internal/core"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestLRU(size int, ttl time.Duration) (*LRUCache[int], *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](size, ttl)
	c.now = clock.now
	return c, clock
}

func TestLRUEviction(t *testing.T) {
	c, _ := newTestLRU(2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a is now most recent
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("a = %d,%v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	c, clock := newTestLRU(10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	clock.t = clock.t.Add(30 * time.Second)
	c.Set("b", 3) // refreshed

	clock.t = clock.t.Add(45 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatal("a should be expired")
	}
	if n := c.CleanExpired(); n != 0 {
		t.Fatalf("cleaned %d, want 0 (a already removed by Get)", n)
	}

	clock.t = clock.t.Add(time.Minute)
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("cleaned %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Fatalf("size = %d", c.Size())
	}
}

func TestLRUStats(t *testing.T) {
	c, _ := newTestLRU(4, time.Hour)
	c.Set("a", 1)
	c.Get("a")
	c.Get("missing")
	c.Delete("a")
	c.Get("a")

	st := c.Stats()
	if st.Hits != 1 || st.Misses != 2 || st.Size != 0 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestSnapshotsKeyedByUser(t *testing.T) {
	s := NewSnapshots(8, time.Hour)
	s.Put("Fran", core.Report{CUIT: "30687120066", Denomination: "ACME"})

	if r, ok := s.Get("fran", "30687120066"); !ok || r.Denomination != "ACME" {
		t.Fatalf("lookup should ignore username case, got %+v,%v", r, ok)
	}
	if _, ok := s.Get("other", "30687120066"); ok {
		t.Fatal("snapshots must not leak across users")
	}
}

func TestJanitorRunStopsOnCancel(t *testing.T) {
	c, clock := newTestLRU(4, time.Minute)
	c.Set("a", 1)
	clock.t = clock.t.Add(time.Hour)

	j := NewJanitor(nil)
	j.Register(c)
	if n := j.Sweep(); n != 1 {
		t.Fatalf("swept %d", n)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- j.Run(ctx, time.Millisecond) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
