// Package cache provides a generic, in-process, thread-safe key-value cache
// with per-entry TTL expiration and at-most-once concurrent computation per
// key. It is meant for memoizing expensive, idempotent work (remote calls,
// heavy queries) inside a single process.
//
// Design
//
//   - Concurrency: a single mutex guards the key→entry map and the key→lock
//     table; every key gets its own lazily created mutex that serializes
//     compute-or-fetch for that key. Computations for different keys run in
//     parallel and never block each other beyond the brief bookkeeping under
//     the global mutex.
//
//   - TTL: entries carry an absolute creation timestamp (UnixNano) and a
//     relative lifetime. Forever (the default) disables expiration; a zero or
//     negative lifetime means "already expired". Expired entries are evicted
//     lazily when a non-dirty read touches them, or in bulk via Clean.
//
//   - Dirty reads: WithDirty (per call) or Options.Dirty (per cache) allow
//     expired values to be served. In particular, a caller that finds the
//     key's lock held by a slow recomputation receives the stale value
//     immediately instead of waiting.
//
//   - Eager mode: WithEager stores a placeholder under an already-expired
//     lifetime, kicks off the computation in a detached goroutine and returns
//     the placeholder at once. The goroutine replaces the placeholder on
//     success; on failure it removes the placeholder and its lock so a later
//     call can retry, logging the error through Options.Logger.
//
//   - Reentrancy: the compute function receives a context that tracks which
//     keys are being computed on the current call path. A nested Fetch for
//     the same key fails with ErrReentrantLock; nested fetches for other keys
//     are fine. Pass that context through.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Compute/Evict/Size signals.
//     NoopMetrics is the default; plug the metrics/prom adapter to export
//     Prometheus metrics.
//
// Basic usage
//
//	c := cache.New[string, string](cache.Options[string, string]{})
//	defer func() { _ = c.Close() }()
//
//	v, err := c.Fetch(ctx, "user:42", func(ctx context.Context) (string, error) {
//	    return loadUser(ctx, 42)
//	}, cache.WithTTL[string](time.Minute))
//
// Concurrent Fetch calls for "user:42" run loadUser at most once; all callers
// observe the same value. Fetch calls for other keys proceed independently.
//
// Dirty reads
//
//	// Serve the stale value if a slow refresh is in flight.
//	v, err := c.Fetch(ctx, key, compute, cache.WithDirty[string]())
//
// Eager refresh
//
//	// Returns 0 immediately; 99 becomes visible once compute finishes.
//	v, _ := c.Fetch(ctx, key, slowCompute, cache.WithEager(0))
//
// Disabling the cache
//
// NewNop returns a drop-in Cache that stores nothing and always invokes the
// compute function. Use it to switch caching off without touching call sites.
//
// Thread-safety
//
// All methods on Cache are safe for concurrent use unless the cache was
// constructed with Options.Unsynchronized, which disables locking entirely
// and is only suitable for single-threaded use.
package cache
