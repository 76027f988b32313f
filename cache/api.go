package cache

import (
	"context"
	"time"
)

// Compute produces a value for a key on demand. The engine treats it as an
// opaque capability: it is invoked at most once per miss, outside the global
// mutex but under the key's lock. Nested Fetch calls from inside a Compute
// must use the supplied context so that same-key reentrancy is detected.
type Compute[V any] func(ctx context.Context) (V, error)

// Cache is an in-memory key/value cache with per-entry TTL and per-key
// at-most-once computation. All methods are safe for concurrent use by
// multiple goroutines unless the cache was built with Options.Unsynchronized.
type Cache[K comparable, V any] interface {
	// Fetch returns the value for k, computing it via fn on a miss.
	// A present, non-expired entry wins over fn. Concurrent Fetch calls for
	// the same key run fn at most once; callers for other keys do not block.
	// With WithDirty (or Options.Dirty) an expired value is returned
	// immediately when another caller is busy recomputing the key.
	// With WithEager the placeholder is stored and returned immediately and
	// fn runs in a detached goroutine.
	// A nil fn behaves like Get.
	Fetch(ctx context.Context, k K, fn Compute[V], opts ...Option[V]) (V, error)

	// Get returns the value for k without computing anything.
	// Absent keys fail with ErrKeyNotFound. Expired entries fail with
	// ErrKeyNotFound and are evicted, unless dirty mode allows serving them.
	Get(k K, opts ...Option[V]) (V, error)

	// Put unconditionally writes k→v under the key's lock.
	Put(k K, v V, opts ...Option[V])

	// Contains reports whether k is present. A non-dirty probe of an expired
	// entry evicts it and returns false.
	Contains(k K, opts ...Option[V]) bool

	// Expired reports whether k is present and past its lifetime.
	// Absent keys return false.
	Expired(k K) bool

	// Mtime returns the creation time of k's entry, or the current time if
	// k is absent.
	Mtime(k K) time.Time

	// Locked reports whether k's per-key lock exists and is currently held.
	// It never blocks on the per-key lock itself.
	Locked(k K) bool

	// Remove deletes k's entry and its per-key lock, returning the removed
	// value and whether anything was removed.
	Remove(k K) (V, bool)

	// RemoveAll clears all entries and all per-key locks.
	RemoveAll()

	// RemoveFunc removes every key for which pred returns true, including
	// its per-key lock, and returns the number of removed entries.
	RemoveFunc(pred func(K) bool) int

	// Clean removes every expired entry (and its per-key lock) and returns
	// the number of removed entries.
	Clean() int

	// Len returns the number of stored entries, expired ones included.
	Len() int

	// Empty reports whether no entries are stored.
	Empty() bool

	// Stats returns a snapshot of the engine counters.
	Stats() Stats

	// Close marks the cache closed. Subsequent writes are ignored and reads
	// miss. Current implementation is a soft close and returns nil.
	Close() error
}

// Stats is a point-in-time snapshot of engine counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Computes  uint64
	Evictions uint64
	Entries   int
}
