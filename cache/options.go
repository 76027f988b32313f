package cache

import (
	"math"
	"time"

	"go.uber.org/zap"
)

// Forever is the lifetime sentinel for entries that never expire.
// It is the default lifetime for Fetch and Put.
const Forever time.Duration = math.MaxInt64

// EvictReason explains why an entry was removed by the engine.
type EvictReason int

const (
	// EvictExpired — the entry was past its lifetime (lazy eviction on a
	// non-dirty read, or a Clean sweep).
	EvictExpired EvictReason = iota
	// EvictFailed — an eager-mode placeholder was removed because its
	// background computation returned an error.
	EvictFailed
)

// Metrics exposes cache-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
type Metrics interface {
	Hit()
	Miss()
	Compute()
	Evict(reason EvictReason)
	Size(entries int)
}

// Clock provides time in UnixNano; useful for deterministic tests.
type Clock interface{ NowUnixNano() int64 }

// Options configures the cache behavior. The zero value is a synchronized,
// non-dirty cache; sane defaults are applied in New():
//   - nil Metrics => NoopMetrics
//   - nil Clock   => time.Now
//   - nil Logger  => zap.NewNop()
type Options[K comparable, V any] struct {
	// Unsynchronized disables all locking. No thread-safety guarantees are
	// made in this mode; it exists for single-threaded use where the lock
	// overhead is undesirable.
	Unsynchronized bool

	// Dirty makes expired-but-present values eligible to be served by
	// default, as if every call passed WithDirty.
	Dirty bool

	// Metrics receives Hit/Miss/Compute/Evict/Size signals.
	Metrics Metrics

	// Clock allows overriding the time source (tests). Nil => time.Now().
	Clock Clock

	// Logger receives eager-mode background failures, the only errors that
	// have no caller to propagate to. Nil => zap.NewNop().
	Logger *zap.Logger
}

// Option tweaks a single Fetch/Get/Put/Contains call.
type Option[V any] func(*callOpts[V])

type callOpts[V any] struct {
	ttl         time.Duration
	dirty       bool
	eager       bool
	placeholder V
}

// WithTTL sets the entry lifetime for this call. Forever (the default)
// disables expiration; zero or negative stores the entry already expired.
func WithTTL[V any](ttl time.Duration) Option[V] {
	return func(o *callOpts[V]) {
		o.ttl = ttl
	}
}

// WithDirty allows this call to serve an expired value: a plain read returns
// it instead of failing, and a Fetch that finds the key busy under another
// caller's recomputation returns it instead of waiting.
func WithDirty[V any]() Option[V] {
	return func(o *callOpts[V]) {
		o.dirty = true
	}
}

// WithEager makes Fetch return immediately: an existing entry's value if one
// is present (expired or not), otherwise the placeholder, with the real
// computation running in a detached goroutine. The placeholder is stored
// already expired, so concurrent callers observe the key as present-but-stale
// while the background fill is in flight.
func WithEager[V any](placeholder V) Option[V] {
	return func(o *callOpts[V]) {
		o.eager = true
		o.placeholder = placeholder
	}
}
