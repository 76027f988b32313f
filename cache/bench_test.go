package cache

import (
	"context"
	"math/rand"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

// benchmarkMix exercises a read/write mix against a warm cache.
// It uses parallel workers (RunParallel spawns GOMAXPROCS goroutines).
// String keys include strconv/concat costs and often allocate, which is fine
// for an end-to-end benchmark.
func benchmarkMix(b *testing.B, readsPct int) {
	c := New[string, string](Options[string, string]{})
	b.Cleanup(func() { _ = c.Close() })

	// Preload a hot keyspace to get a realistic hit-rate.
	for i := 0; i < 50_000; i++ {
		k := "k:" + strconv.Itoa(i)
		c.Put(k, "v")
	}

	// Report per-op allocations for a rough idea where costs go.
	b.ReportAllocs()
	b.ResetTimer()

	var seed int64 = 1
	keyMask := (1 << 16) - 1 // hot keyspace (power of two for fast &-mask)

	b.RunParallel(func(pb *testing.PB) {
		// Independent RNG stream for each worker.
		r := rand.New(rand.NewSource(atomic.AddInt64(&seed, 1)))
		i := 0
		for pb.Next() {
			k := "k:" + strconv.Itoa(i&keyMask)
			if r.Intn(100) < readsPct {
				_, _ = c.Get(k)
			} else {
				c.Put(k, "v")
			}
			i++
		}
	})
}

func BenchmarkCache_90r10w(b *testing.B) { benchmarkMix(b, 90) }
func BenchmarkCache_50r50w(b *testing.B) { benchmarkMix(b, 50) }

// BenchmarkFetch_Hit measures the compute-or-fetch hot path when the entry
// is fresh and the compute function is never invoked.
func BenchmarkFetch_Hit(b *testing.B) {
	c := New[int, int](Options[int, int]{})
	b.Cleanup(func() { _ = c.Close() })

	for i := 0; i < 1<<16; i++ {
		c.Put(i, i)
	}

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		ctx := context.Background()
		i := 0
		for pb.Next() {
			_, _ = c.Fetch(ctx, i&((1<<16)-1), func(context.Context) (int, error) {
				return 0, nil
			})
			i++
		}
	})
}

// BenchmarkFetch_ExpireRecompute cycles a single key through expiry and
// recomputation to expose the per-key lock overhead.
func BenchmarkFetch_ExpireRecompute(b *testing.B) {
	c := New[string, int](Options[string, int]{})
	b.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, _ = c.Fetch(ctx, "k", func(context.Context) (int, error) {
			return i, nil
		}, WithTTL[int](time.Duration(0)))
	}
}
