package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/IvanBrykalov/memocache/internal/util"
)

// cache is the map-plus-lock-table engine behind the Cache interface.
//
// Locking discipline (when synchronized):
//   - mu (the global mutex) guards the structure of both maps: entries and
//     locks. Every lookup/creation/removal of a keyLock happens under mu.
//   - each keyLock serializes compute-or-fetch and Put for one key. It is
//     acquired with mu released, so computations for different keys never
//     block each other.
type cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*entry[V]
	locks   map[K]*keyLock

	closed atomic.Bool
	opt    Options[K, V]
	log    *zap.Logger

	// ---- hot counters (separate cache lines to avoid false sharing) ----
	_        util.CacheLinePad
	hits     util.PaddedAtomicUint64
	misses   util.PaddedAtomicUint64
	computes util.PaddedAtomicUint64
	evicts   util.PaddedAtomicUint64
}

// keyLock serializes operations for a single key. held mirrors the mutex
// state so Locked and the dirty-while-busy shortcut can query it without
// blocking.
type keyLock struct {
	mu   sync.Mutex
	held atomic.Bool
}

func (l *keyLock) acquire() {
	l.mu.Lock()
	l.held.Store(true)
}

func (l *keyLock) release() {
	l.held.Store(false)
	l.mu.Unlock()
}

// New constructs a cache with the provided Options.
// Defaults:
//   - nil Metrics -> NoopMetrics
//   - nil Clock   -> time.Now
//   - nil Logger  -> zap.NewNop()
func New[K comparable, V any](opt Options[K, V]) Cache[K, V] {
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	log := opt.Logger
	if log == nil {
		log = zap.NewNop()
	}

	// return pointer-to-impl as the interface (avoids unexported-return lint)
	return &cache[K, V]{
		entries: make(map[K]*entry[V]),
		locks:   make(map[K]*keyLock),
		opt:     opt,
		log:     log,
	}
}

// ---- Cache[K,V] implementation (structural operations) ----

// Get returns the value for k without computing anything. Expired entries
// are served in dirty mode, otherwise evicted and reported as ErrKeyNotFound.
func (c *cache[K, V]) Get(k K, opts ...Option[V]) (V, error) {
	var zero V
	o := c.newCallOpts(opts)

	c.lock()
	defer c.unlock()

	e, ok := c.entries[k]
	if !ok || c.closed.Load() {
		c.miss()
		return zero, notFound(k)
	}
	if e.expired(c.now()) && !o.dirty {
		c.evictLocked(k, EvictExpired)
		c.miss()
		return zero, notFound(k)
	}
	c.hit()
	return e.val, nil
}

// Put unconditionally writes k→v under the key's lock.
func (c *cache[K, V]) Put(k K, v V, opts ...Option[V]) {
	if c.closed.Load() {
		return
	}
	o := c.newCallOpts(opts)

	if c.opt.Unsynchronized {
		c.storeLocked(k, v, o.ttl)
		return
	}

	kl := c.lockFor(k)
	kl.acquire()
	defer kl.release()

	c.mu.Lock()
	c.storeLocked(k, v, o.ttl)
	c.mu.Unlock()
}

// Contains reports whether k is present. Probing an expired entry without
// dirty mode evicts it as a side effect.
func (c *cache[K, V]) Contains(k K, opts ...Option[V]) bool {
	o := c.newCallOpts(opts)

	c.lock()
	defer c.unlock()

	e, ok := c.entries[k]
	if !ok || c.closed.Load() {
		return false
	}
	if e.expired(c.now()) && !o.dirty {
		c.evictLocked(k, EvictExpired)
		return false
	}
	return true
}

// Expired reports whether k is present and past its lifetime.
func (c *cache[K, V]) Expired(k K) bool {
	c.lock()
	defer c.unlock()

	e, ok := c.entries[k]
	return ok && e.expired(c.now())
}

// Mtime returns the creation time of k's entry, or the current time if k is
// absent (absence is not an error here).
func (c *cache[K, V]) Mtime(k K) time.Time {
	c.lock()
	defer c.unlock()

	if e, ok := c.entries[k]; ok {
		return time.Unix(0, e.createdAt)
	}
	return time.Unix(0, c.now())
}

// Locked reports whether k's per-key lock exists and is currently held.
// Queries lock state only; never blocks on the per-key lock.
func (c *cache[K, V]) Locked(k K) bool {
	c.lock()
	defer c.unlock()

	kl, ok := c.locks[k]
	return ok && kl.held.Load()
}

// Remove deletes k's entry and its per-key lock atomically with respect to
// the other structural operations.
func (c *cache[K, V]) Remove(k K) (V, bool) {
	var zero V
	if c.closed.Load() {
		return zero, false
	}

	c.lock()
	defer c.unlock()

	e, ok := c.entries[k]
	if !ok {
		return zero, false
	}
	delete(c.entries, k)
	c.deleteLockLocked(k)
	c.opt.Metrics.Size(len(c.entries))
	return e.val, true
}

// RemoveAll clears all entries and all per-key locks.
func (c *cache[K, V]) RemoveAll() {
	c.lock()
	defer c.unlock()

	c.entries = make(map[K]*entry[V])
	for k := range c.locks {
		c.deleteLockLocked(k)
	}
	c.opt.Metrics.Size(0)
}

// RemoveFunc removes every key for which pred returns true, including its
// per-key lock, and returns the number of removed entries.
func (c *cache[K, V]) RemoveFunc(pred func(K) bool) int {
	c.lock()
	defer c.unlock()

	removed := 0
	for k := range c.entries {
		if pred(k) {
			delete(c.entries, k)
			c.deleteLockLocked(k)
			removed++
		}
	}
	if removed > 0 {
		c.opt.Metrics.Size(len(c.entries))
	}
	return removed
}

// Clean removes every expired entry and its per-key lock, returning the
// number of removed entries.
func (c *cache[K, V]) Clean() int {
	c.lock()
	defer c.unlock()

	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if e.expired(now) {
			c.evictLocked(k, EvictExpired)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired ones included.
func (c *cache[K, V]) Len() int {
	c.lock()
	defer c.unlock()
	return len(c.entries)
}

// Empty reports whether no entries are stored.
func (c *cache[K, V]) Empty() bool {
	return c.Len() == 0
}

// Stats returns a snapshot of the engine counters.
func (c *cache[K, V]) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Computes:  c.computes.Load(),
		Evictions: c.evicts.Load(),
		Entries:   c.Len(),
	}
}

// Close marks the cache as closed. Subsequent writes are ignored and reads
// miss. In-flight eager fills finish against their own key only.
func (c *cache[K, V]) Close() error {
	c.closed.Store(true)
	return nil
}

// -------------------- internals --------------------

// lock/unlock take the global mutex unless the cache is unsynchronized.
func (c *cache[K, V]) lock() {
	if !c.opt.Unsynchronized {
		c.mu.Lock()
	}
}

func (c *cache[K, V]) unlock() {
	if !c.opt.Unsynchronized {
		c.mu.Unlock()
	}
}

func (c *cache[K, V]) now() int64 {
	if c.opt.Clock != nil {
		return c.opt.Clock.NowUnixNano()
	}
	return time.Now().UnixNano()
}

// newCallOpts seeds per-call options from the cache-level defaults.
func (c *cache[K, V]) newCallOpts(opts []Option[V]) callOpts[V] {
	o := callOpts[V]{ttl: Forever, dirty: c.opt.Dirty}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// lockFor returns k's per-key lock, creating it under the global mutex.
// Lock objects must never be created outside mu: a race creating two locks
// for one key would break the at-most-once guarantee.
func (c *cache[K, V]) lockFor(k K) *keyLock {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lockForLocked(k)
}

func (c *cache[K, V]) lockForLocked(k K) *keyLock {
	kl, ok := c.locks[k]
	if !ok {
		kl = &keyLock{}
		c.locks[k] = kl
	}
	return kl
}

// storeLocked (re)writes k's entry. value, createdAt and lifetime are set
// together; mu must be held (or the cache unsynchronized).
func (c *cache[K, V]) storeLocked(k K, v V, ttl time.Duration) {
	if c.closed.Load() {
		return
	}
	c.entries[k] = &entry[V]{val: v, createdAt: c.now(), lifetime: ttl}
	c.opt.Metrics.Size(len(c.entries))
}

// evictLocked removes k's entry and its idle lock and records the eviction.
// mu must be held (or the cache unsynchronized).
func (c *cache[K, V]) evictLocked(k K, reason EvictReason) {
	delete(c.entries, k)
	c.deleteLockLocked(k)
	c.evicts.Add(1)
	c.opt.Metrics.Evict(reason)
	c.opt.Metrics.Size(len(c.entries))
}

// deleteLockLocked retires k's lock unless a computation currently holds it.
// Removing a held lock would let a new caller create a second lock for the
// key and compute concurrently with the in-flight holder. The holder keeps
// its reference and finishes against it; the table entry stays until the key
// is next removed while idle.
func (c *cache[K, V]) deleteLockLocked(k K) {
	if kl, ok := c.locks[k]; ok && !kl.held.Load() {
		delete(c.locks, k)
	}
}

func (c *cache[K, V]) hit() {
	c.hits.Add(1)
	c.opt.Metrics.Hit()
}

func (c *cache[K, V]) miss() {
	c.misses.Add(1)
	c.opt.Metrics.Miss()
}
