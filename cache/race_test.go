package cache

import (
	"context"
	"math/rand"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// A mixed workload of concurrent Put/Get/Fetch/Contains/Remove/Clean on
// random keys. Should pass under `-race` without detector reports.
func TestRace_Basic(t *testing.T) {
	c := New[string, int](Options[string, int]{})
	t.Cleanup(func() { _ = c.Close() })

	workers := 4 * runtime.GOMAXPROCS(0)
	keyspace := 10_000
	deadline := time.Now().Add(2 * time.Second)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(id int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)*9973))
			for time.Now().Before(deadline) {
				k := "k:" + strconv.Itoa(r.Intn(keyspace))
				switch r.Intn(100) {
				case 0, 1, 2, 3, 4: // ~5% — Remove
					c.Remove(k)
				case 5, 6, 7, 8, 9: // ~5% — Put with short TTL
					c.Put(k, id, WithTTL[int](time.Duration(10+r.Intn(20))*time.Millisecond))
				case 10, 11, 12, 13, 14: // ~5% — Fetch
					_, _ = c.Fetch(context.Background(), k, func(context.Context) (int, error) {
						return id, nil
					}, WithTTL[int](50*time.Millisecond))
				case 15: // ~1% — bulk maintenance
					c.Clean()
				case 16: // ~1% — structural queries
					c.Len()
					c.Locked(k)
					c.Expired(k)
				default: // ~rest — reads
					_, _ = c.Get(k, WithDirty[int]())
					c.Contains(k)
				}
			}
		}(w)
	}
	wg.Wait()
}

// One hundred goroutines Fetch the same key concurrently.
// The compute function should run at most once per fill.
func TestRace_FetchSameKey(t *testing.T) {
	var calls int64

	c := New[string, string](Options[string, string]{})
	t.Cleanup(func() { _ = c.Close() })

	const goroutines = 100
	key := "same-key"

	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			<-start
			v, err := c.Fetch(context.Background(), key, func(context.Context) (string, error) {
				atomic.AddInt64(&calls, 1)
				time.Sleep(2 * time.Millisecond) // simulate I/O
				return "v:" + key, nil
			})
			if err != nil {
				t.Errorf("Fetch error: %v", err)
				return
			}
			if v != "v:"+key {
				t.Errorf("unexpected value: %q", v)
			}
		}()
	}

	close(start)
	wg.Wait()

	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Fatalf("compute should run exactly once, got %d", got)
	}

	// Subsequent call should be a pure cache hit.
	if v, err := c.Get(key); err != nil || v != "v:"+key {
		t.Fatalf("follow-up Get failed: v=%q err=%v", v, err)
	}
}

// Concurrent eager fetches plus removals: placeholders come and go while
// readers probe the key. Exercises the lock-table hygiene paths.
func TestRace_EagerChurn(t *testing.T) {
	c := New[string, int](Options[string, int]{})
	t.Cleanup(func() { _ = c.Close() })

	deadline := time.Now().Add(time.Second)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for time.Now().Before(deadline) {
				k := "k:" + strconv.Itoa(id%4)
				switch id % 3 {
				case 0:
					_, _ = c.Fetch(context.Background(), k, func(context.Context) (int, error) {
						return id, nil
					}, WithEager(-1), WithTTL[int](10*time.Millisecond))
				case 1:
					c.Remove(k)
				default:
					_, _ = c.Get(k, WithDirty[int]())
					c.Locked(k)
				}
			}
		}(w)
	}
	wg.Wait()
}
