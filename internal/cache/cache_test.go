package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLRUCache_Eviction(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("least recently used key should be evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %v, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](4, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	c.Set("j", "w")
	now = now.Add(2 * time.Minute)

	if _, ok := c.Get("k"); ok {
		t.Error("expired entry returned")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired() = %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0", c.Size())
	}
}

func TestLRUCache_Purge(t *testing.T) {
	c := NewLRUCache[int](4, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Purge()
	if c.Size() != 0 {
		t.Fatalf("Size() = %d after Purge", c.Size())
	}
	c.Set("a", 3)
	if v, _ := c.Get("a"); v != 3 {
		t.Fatalf("cache unusable after Purge, got %d", v)
	}
}

func TestLoader_HitAndMiss(t *testing.T) {
	l := NewLoader[int](NewLRUCache[int](4, time.Minute))
	calls := 0
	fill := func() (int, error) { calls++; return 42, nil }

	v, hit, err := l.Get("k", fill)
	if err != nil || hit || v != 42 {
		t.Fatalf("first Get = %d, %v, %v", v, hit, err)
	}
	v, hit, err = l.Get("k", fill)
	if err != nil || !hit || v != 42 {
		t.Fatalf("second Get = %d, %v, %v", v, hit, err)
	}
	if calls != 1 {
		t.Fatalf("fill called %d times", calls)
	}

	l.Invalidate()
	if _, hit, _ := l.Get("k", fill); hit {
		t.Fatal("Invalidate should force a refill")
	}
	if calls != 2 {
		t.Fatalf("fill called %d times after invalidate", calls)
	}
}

func TestLoader_ErrorNotCached(t *testing.T) {
	c := NewLRUCache[int](4, time.Minute)
	l := NewLoader[int](c)
	boom := errors.New("boom")

	if _, _, err := l.Get("k", func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if c.Size() != 0 {
		t.Fatal("failed fill must not be cached")
	}
}

func TestLoader_CollapsesConcurrentFills(t *testing.T) {
	l := NewLoader[int](NewLRUCache[int](4, time.Minute))
	var calls atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Get("k", func() (int, error) {
				calls.Add(1)
				<-release
				return 1, nil
			})
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n < 1 || n > 8 {
		t.Fatalf("fill called %d times", n)
	}
	if v, hit, _ := l.Get("k", func() (int, error) { return 2, nil }); !hit || v != 1 {
		t.Fatalf("value after concurrent fill = %d, hit %v", v, hit)
	}
}

func TestLoader_InvalidateDoesNotShareInFlightFill(t *testing.T) {
	l := NewLoader[string](NewLRUCache[string](4, time.Minute))
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan string, 1)
	go func() {
		v, _, _ := l.Get("2024-03", func() (string, error) {
			close(started)
			<-release
			return "before-mutation", nil
		})
		done <- v
	}()
	<-started
	l.Invalidate()

	v, hit, err := l.Get("2024-03", func() (string, error) { return "after-mutation", nil })
	close(release)
	if err != nil || hit || v != "after-mutation" {
		t.Fatalf("Get after Invalidate = %q, hit %v, err %v", v, hit, err)
	}
	if old := <-done; old != "before-mutation" {
		t.Fatalf("in-flight fill returned %q", old)
	}
	if v, hit, _ := l.Get("2024-03", func() (string, error) { return "refill", nil }); !hit || v != "after-mutation" {
		t.Fatalf("cached value = %q, hit %v", v, hit)
	}
}

func TestManager_StopIdempotent(t *testing.T) {
	m := NewManager(nil)
	m.Register(NewLRUCache[int](1, time.Millisecond))
	m.StartCleanup(time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	m.Stop()
	m.Stop()

	unstarted := NewManager(nil)
	unstarted.Stop()
}
