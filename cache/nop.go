package cache

import (
	"context"
	"time"
)

// Nop is a Cache that stores nothing. Fetch always invokes the compute
// function and returns its result; everything else behaves as if the cache
// were permanently empty. Use it as a drop-in substitute when caching must
// be disabled without changing call sites.
type Nop[K comparable, V any] struct{}

// NewNop returns a no-op cache.
func NewNop[K comparable, V any]() *Nop[K, V] {
	return &Nop[K, V]{}
}

func (n *Nop[K, V]) Fetch(ctx context.Context, k K, fn Compute[V], opts ...Option[V]) (V, error) {
	var zero V
	if fn == nil {
		return zero, notFound(k)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx)
}

func (n *Nop[K, V]) Get(k K, opts ...Option[V]) (V, error) {
	var zero V
	return zero, notFound(k)
}

func (n *Nop[K, V]) Put(k K, v V, opts ...Option[V]) {}

// Contains always reports true so callers that gate work on presence keep
// going straight to their compute path.
func (n *Nop[K, V]) Contains(k K, opts ...Option[V]) bool { return true }

func (n *Nop[K, V]) Expired(k K) bool { return false }

func (n *Nop[K, V]) Mtime(k K) time.Time { return time.Now() }

func (n *Nop[K, V]) Locked(k K) bool { return false }

func (n *Nop[K, V]) Remove(k K) (V, bool) {
	var zero V
	return zero, false
}

func (n *Nop[K, V]) RemoveAll() {}

func (n *Nop[K, V]) RemoveFunc(pred func(K) bool) int { return 0 }

func (n *Nop[K, V]) Clean() int { return 0 }

func (n *Nop[K, V]) Len() int { return 0 }

func (n *Nop[K, V]) Empty() bool { return true }

func (n *Nop[K, V]) Stats() Stats { return Stats{} }

func (n *Nop[K, V]) Close() error { return nil }

var _ Cache[string, any] = (*Nop[string, any])(nil)
