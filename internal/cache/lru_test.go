package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestLRU[T any](size int, ttl time.Duration) (*LRU[T], *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	c := NewLRU[T](size, ttl)
	c.now = clock.now
	return c, clock
}

func TestLRU_Eviction(t *testing.T) {
	c, _ := newTestLRU[string](3, time.Hour)

	c.Set("key1", "value1")
	c.Set("key2", "value2")
	c.Set("key3", "value3")
	c.Get("key1") // key2 becomes least recently used
	c.Set("key4", "value4")

	if _, ok := c.Get("key2"); ok {
		t.Error("key2 should have been evicted")
	}
	for _, k := range []string{"key1", "key3", "key4"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s should still be cached", k)
		}
	}
	if c.Size() != 3 {
		t.Errorf("Size() = %d, want 3", c.Size())
	}
}

func TestLRU_Expiry(t *testing.T) {
	c, clock := newTestLRU[int](10, time.Minute)

	c.Set("a", 1)
	clock.advance(30 * time.Second)
	c.Set("b", 2)

	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %d, %v; want 1, true", v, ok)
	}

	clock.advance(45 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Error("a should have expired")
	}
	if n := c.CleanExpired(); n != 0 {
		t.Errorf("CleanExpired() = %d, want 0 (a already dropped by Get)", n)
	}

	clock.advance(time.Minute)
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired() = %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0", c.Size())
	}
}

func TestLRU_SetRefreshesExpiry(t *testing.T) {
	c, clock := newTestLRU[int](10, time.Minute)
	c.Set("a", 1)
	clock.advance(50 * time.Second)
	c.Set("a", 2)
	clock.advance(50 * time.Second)

	if v, ok := c.Get("a"); !ok || v != 2 {
		t.Errorf("Get(a) = %d, %v; want 2, true", v, ok)
	}
}

func TestLRU_GetOrLoad(t *testing.T) {
	c, _ := newTestLRU[int](10, time.Minute)
	ctx := context.Background()
	calls := 0
	load := func(context.Context) (int, error) {
		calls++
		return 42, nil
	}

	for range 3 {
		v, err := c.GetOrLoad(ctx, "k", load)
		if err != nil || v != 42 {
			t.Fatalf("GetOrLoad() = %d, %v", v, err)
		}
	}
	if calls != 1 {
		t.Errorf("loader called %d times, want 1", calls)
	}

	boom := errors.New("boom")
	if _, err := c.GetOrLoad(ctx, "bad", func(context.Context) (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Errorf("GetOrLoad() error = %v, want %v", err, boom)
	}
	if _, ok := c.Get("bad"); ok {
		t.Error("failed load must not be cached")
	}

	stats := c.Stats()
	if stats.Hits != 2 || stats.Size != 1 {
		t.Errorf("Stats() = %+v, want 2 hits and size 1", stats)
	}
}

func TestLRU_DeleteAndPurge(t *testing.T) {
	c, _ := newTestLRU[int](10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("a should be deleted")
	}
	c.Purge()
	if c.Size() != 0 {
		t.Errorf("Size() after Purge = %d, want 0", c.Size())
	}
}

func TestJanitor_Sweep(t *testing.T) {
	a, clockA := newTestLRU[int](10, time.Second)
	b, clockB := newTestLRU[string](10, time.Hour)
	a.Set("x", 1)
	a.Set("y", 2)
	b.Set("z", "z")
	clockA.advance(2 * time.Second)
	clockB.advance(2 * time.Second)

	j := NewJanitor(a)
	j.Register(b)
	if n := j.Sweep(); n != 2 {
		t.Errorf("Sweep() = %d, want 2", n)
	}
}

func TestJanitor_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewJanitor().Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
