package cache

import (
	"context"

	"go.uber.org/zap"
)

// Fetch returns the value for k, computing it via fn on a miss.
//
// Concurrency notes:
//   - The caller that wins the per-key lock race runs fn; it blocks for the
//     duration of the call. Losers wait on the lock and then observe the
//     winner's stored entry. fn runs at most once per miss.
//   - Callers for different keys only contend on the brief global-mutex
//     bookkeeping, never on each other's computation.
//   - A compute error propagates to the single caller that invoked fn and
//     leaves no partial entry behind, so a retry is simply another Fetch.
func (c *cache[K, V]) Fetch(ctx context.Context, k K, fn Compute[V], opts ...Option[V]) (V, error) {
	var zero V
	if fn == nil {
		return c.Get(k, opts...)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if holdsKey(ctx, c, k) {
		return zero, reentrant(k)
	}
	o := c.newCallOpts(opts)

	if c.opt.Unsynchronized {
		return c.fetchUnsync(ctx, k, fn, o)
	}

	c.mu.Lock()
	e, ok := c.entries[k]
	if c.closed.Load() {
		// A closed cache serves nothing; stored entries are unreachable.
		ok = false
	}
	if ok && !e.expired(c.now()) {
		// Existing non-expired value wins over fn.
		c.mu.Unlock()
		c.hit()
		return e.val, nil
	}

	if o.eager {
		if ok {
			// Present (even expired): current value, no waiting.
			c.mu.Unlock()
			c.hit()
			return e.val, nil
		}
		// Store the placeholder born-expired so concurrent callers see the
		// key as present-but-stale during the background fill.
		ph := &entry[V]{val: o.placeholder, createdAt: c.now(), lifetime: 0}
		if !c.closed.Load() {
			c.entries[k] = ph
		}
		kl := c.lockForLocked(k)
		c.opt.Metrics.Size(len(c.entries))
		c.mu.Unlock()

		go c.fill(k, kl, ph, fn, o)
		return o.placeholder, nil
	}

	// Dirty-while-busy shortcut: a stale value beats waiting on a slow
	// recomputation. e is necessarily expired here.
	kl, exists := c.locks[k]
	if o.dirty && ok && exists && kl.held.Load() {
		c.mu.Unlock()
		c.hit()
		return e.val, nil
	}
	if !exists {
		kl = c.lockForLocked(k)
	}
	c.mu.Unlock()

	kl.acquire()
	defer kl.release()

	// Re-check under the key lock: another caller may have filled the entry
	// while we waited.
	c.mu.Lock()
	if e, ok := c.entries[k]; ok && !c.closed.Load() && !e.expired(c.now()) {
		c.mu.Unlock()
		c.hit()
		return e.val, nil
	}
	c.mu.Unlock()
	c.miss()

	v, err := c.compute(ctx, k, fn)
	if err != nil {
		return zero, err
	}

	c.mu.Lock()
	c.storeLocked(k, v, o.ttl)
	c.mu.Unlock()
	return v, nil
}

// compute invokes fn with the held-key chain extended by k, so a nested
// Fetch for the same key is detected instead of deadlocking.
func (c *cache[K, V]) compute(ctx context.Context, k K, fn Compute[V]) (V, error) {
	v, err := fn(withHeldKey(ctx, c, k))
	c.computes.Add(1)
	c.opt.Metrics.Compute()
	return v, err
}

// fill is the eager-mode background task. It is detached: it outlives the
// Fetch call, reports to no caller, and only ever mutates its own key.
func (c *cache[K, V]) fill(k K, kl *keyLock, ph *entry[V], fn Compute[V], o callOpts[V]) {
	kl.acquire()
	defer kl.release()

	v, err := c.compute(context.Background(), k, fn)
	if err != nil {
		// Drop the placeholder and its lock so a later call retries
		// cleanly. Skip the cleanup if the entry was replaced meanwhile.
		c.mu.Lock()
		if c.entries[k] == ph {
			delete(c.entries, k)
			c.evicts.Add(1)
			c.opt.Metrics.Evict(EvictFailed)
			c.opt.Metrics.Size(len(c.entries))
		}
		// We are the holder, so retiring our own lock here is safe.
		if c.locks[k] == kl {
			delete(c.locks, k)
		}
		c.mu.Unlock()
		c.log.Warn("cache: eager compute failed", zap.Error(err))
		return
	}

	c.mu.Lock()
	c.storeLocked(k, v, o.ttl)
	c.mu.Unlock()
}

// fetchUnsync is the lock-free path for unsynchronized caches.
func (c *cache[K, V]) fetchUnsync(ctx context.Context, k K, fn Compute[V], o callOpts[V]) (V, error) {
	var zero V
	e, ok := c.entries[k]
	if c.closed.Load() {
		ok = false
	}
	if ok && !e.expired(c.now()) {
		c.hit()
		return e.val, nil
	}
	if o.eager {
		if ok {
			c.hit()
			return e.val, nil
		}
		ph := &entry[V]{val: o.placeholder, createdAt: c.now(), lifetime: 0}
		if !c.closed.Load() {
			c.entries[k] = ph
		}
		c.opt.Metrics.Size(len(c.entries))
		go func() {
			v, err := c.compute(context.Background(), k, fn)
			if err != nil {
				if c.entries[k] == ph {
					c.evictLocked(k, EvictFailed)
				}
				c.log.Warn("cache: eager compute failed", zap.Error(err))
				return
			}
			c.storeLocked(k, v, o.ttl)
		}()
		return o.placeholder, nil
	}
	c.miss()

	v, err := c.compute(ctx, k, fn)
	if err != nil {
		return zero, err
	}
	c.storeLocked(k, v, o.ttl)
	return v, nil
}

// ---- reentrancy bookkeeping ----

// heldKey is one link of the per-call-path chain of keys currently being
// computed. The chain travels in the context handed to Compute functions.
type heldKey struct {
	cache any
	key   any
	prev  *heldKey
}

type heldKeyCtx struct{}

func withHeldKey(ctx context.Context, c, k any) context.Context {
	prev, _ := ctx.Value(heldKeyCtx{}).(*heldKey)
	return context.WithValue(ctx, heldKeyCtx{}, &heldKey{cache: c, key: k, prev: prev})
}

// holdsKey reports whether the call path in ctx already computes k on this
// cache. Detection is same-key-only: other keys (and other caches) pass.
func holdsKey(ctx context.Context, c, k any) bool {
	h, _ := ctx.Value(heldKeyCtx{}).(*heldKey)
	for ; h != nil; h = h.prev {
		if h.cache == c && h.key == k {
			return true
		}
	}
	return false
}
