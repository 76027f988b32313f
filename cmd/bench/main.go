// Command bench runs a synthetic memoization workload against the cache and
// exposes optional pprof/Prometheus endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/IvanBrykalov/memocache/cache"
	pmet "github.com/IvanBrykalov/memocache/metrics/prom"
)

func main() {
	// ---- Flags ----
	var (
		workers  = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")
		readPct  = flag.Int("reads", 70, "plain-read percentage [0..100]")
		dirtyPct = flag.Int("dirty", 10, "dirty-read percentage of fetches [0..100]")

		ttl     = flag.Duration("ttl", 50*time.Millisecond, "entry lifetime for fetched values")
		workDur = flag.Duration("work", time.Millisecond, "simulated compute latency")

		keys  = flag.Int("keys", 100_000, "keyspace size")
		zipfS = flag.Float64("zipf_s", 1.1, "Zipf s > 1 (skew)")
		zipfV = flag.Float64("zipf_v", 1.0, "Zipf v")
		seed  = flag.Int64("seed", time.Now().UnixNano(), "random seed")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", ":8080", "serve Prometheus metrics at addr")
	)
	flag.Parse()

	// ---- pprof server (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			log.Printf("pprof: serving at %s", *pprofAddr)
			log.Println(http.ListenAndServe(*pprofAddr, nil))
		}()
	}

	// ---- Prometheus metrics (on DefaultServeMux) ----
	// Label the run so repeated invocations are distinguishable in scrapes.
	runID := gonanoid.Must(8)
	metrics := pmet.New(nil, "memocache", "bench", prometheus.Labels{"run": runID})
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Printf("metrics: serving at %s (run=%s)", *metricsAddr, runID)
		log.Println(http.ListenAndServe(*metricsAddr, nil))
	}()

	// ---- Build cache ----
	c := cache.New[string, string](cache.Options[string, string]{
		Metrics: metrics,
	})
	defer func() { _ = c.Close() }()

	// ---- Snapshot flags for goroutines ----
	readPctVal := *readPct
	dirtyPctVal := *dirtyPct
	keysMax := uint64(*keys - 1)
	seedBase := *seed
	zipfSVal := *zipfS
	zipfVVal := *zipfV
	ttlVal := *ttl
	workVal := *workDur
	workersN := *workers
	if workersN <= 0 {
		workersN = 1
	}

	// ---- Load generation ----
	var reads, fetches, computes, staleHits, total uint64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(workersN)
	for w := 0; w < workersN; w++ {
		go func(id int) {
			defer wg.Done()

			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			localR := rand.New(rand.NewSource(seedBase + int64(id)*9973))
			localZipf := rand.NewZipf(localR, zipfSVal, zipfVVal, keysMax)

			keyByZipf := func() string {
				return "k:" + strconv.FormatUint(localZipf.Uint64(), 10)
			}

			compute := func(k string) cache.Compute[string] {
				return func(cctx context.Context) (string, error) {
					atomic.AddUint64(&computes, 1)
					if workVal > 0 {
						time.Sleep(workVal)
					}
					return "v:" + k, nil
				}
			}

			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				atomic.AddUint64(&total, 1)
				k := keyByZipf()
				if int(localR.Int31n(100)) < readPctVal {
					atomic.AddUint64(&reads, 1)
					if _, err := c.Get(k, cache.WithDirty[string]()); err == nil {
						atomic.AddUint64(&staleHits, 1)
					}
					continue
				}

				atomic.AddUint64(&fetches, 1)
				opts := []cache.Option[string]{cache.WithTTL[string](ttlVal)}
				if int(localR.Int31n(100)) < dirtyPctVal {
					opts = append(opts, cache.WithDirty[string]())
				}
				if _, err := c.Fetch(ctx, k, compute(k), opts...); err != nil {
					log.Printf("fetch %s: %v", k, err)
				}
			}
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	// ---- Report ----
	ops := atomic.LoadUint64(&total)
	readsN := atomic.LoadUint64(&reads)
	fetchesN := atomic.LoadUint64(&fetches)
	computesN := atomic.LoadUint64(&computes)

	dedup := 0.0
	if fetchesN > 0 {
		dedup = (1 - float64(computesN)/float64(fetchesN)) * 100
	}

	st := c.Stats()
	fmt.Printf("run=%s workers=%d keys=%d ttl=%v work=%v dur=%v seed=%d\n",
		runID, workersN, *keys, ttlVal, workVal, elapsed, seedBase)
	fmt.Printf("ops=%d (%.0f ops/s)  reads=%d  fetches=%d  computes=%d  dedup=%.2f%%\n",
		ops, float64(ops)/elapsed.Seconds(), readsN, fetchesN, computesN, dedup)
	fmt.Printf("hits=%d  misses=%d  evictions=%d  stale-reads=%d  Len()=%d\n",
		st.Hits, st.Misses, st.Evictions, atomic.LoadUint64(&staleHits), c.Len())
}
