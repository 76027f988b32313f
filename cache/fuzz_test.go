//go:build go1.18

package cache

import (
	"errors"
	"strings"
	"testing"
)

// Fuzz basic Put/Get/Remove semantics under arbitrary string inputs.
// Guards against panics and ensures core invariants hold.
// NOTE: We cap key/value lengths to avoid pathological memory usage
// during fuzzing (this does not weaken the invariants we check).
func FuzzCache_PutGetRemove(f *testing.F) {
	// Seed corpus: empty, ASCII, Unicode, long strings.
	f.Add("", "")
	f.Add("a", "1")
	f.Add("b", "2")
	f.Add("αβγ", "δ")
	f.Add("emoji🙂", "🙂🙂")
	f.Add("long", strings.Repeat("x", 1024))

	f.Fuzz(func(t *testing.T, k, v string) {
		// Cap lengths to keep memory bounded during fuzzing.
		const limit = 1 << 12 // 4096
		if len(k) > limit {
			k = k[:limit]
		}
		if len(v) > limit {
			v = v[:limit]
		}

		c := New[string, string](Options[string, string]{})
		t.Cleanup(func() { _ = c.Close() })

		// Put -> Get must return the same value.
		c.Put(k, v)
		got, err := c.Get(k)
		if err != nil || got != v {
			t.Fatalf("after Put/Get: want %q, got %q err=%v", v, got, err)
		}

		// Without a TTL the entry must not be expired.
		if c.Expired(k) {
			t.Fatalf("entry without TTL reported expired")
		}

		// Remove must delete and return the stored value exactly once.
		if rv, ok := c.Remove(k); !ok || rv != v {
			t.Fatalf("Remove: want (%q, true), got (%q, %v)", v, rv, ok)
		}
		if _, err := c.Get(k); !errors.Is(err, ErrKeyNotFound) {
			t.Fatalf("key must be absent after Remove, err=%v", err)
		}
		if c.Locked(k) {
			t.Fatalf("lock must be gone after Remove")
		}

		// After removal, Put should succeed again.
		c.Put(k, v)
		if !c.Contains(k) {
			t.Fatalf("Put after Remove must store the entry")
		}
	})
}
