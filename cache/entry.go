package cache

import "time"

// entry stores one key's cached state. value, createdAt and lifetime are
// always written together under the global mutex; a torn entry is never
// observable.
type entry[V any] struct {
	val V

	// Creation timestamp in UnixNano.
	createdAt int64

	// Relative lifetime. Forever disables expiration; zero or negative
	// means the entry was born expired (eager placeholders rely on this).
	lifetime time.Duration
}

// expired reports whether the entry is past its lifetime at the given
// UnixNano instant.
func (e *entry[V]) expired(now int64) bool {
	if e.lifetime == Forever {
		return false
	}
	return now >= e.createdAt+int64(e.lifetime)
}
