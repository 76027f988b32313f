package cache

import (
	"errors"
	"fmt"
)

// ErrKeyNotFound is returned by Get when the key is absent, or present but
// expired and not served dirty. Test with errors.Is; the returned error
// carries the offending key.
var ErrKeyNotFound = errors.New("cache: key not found")

// ErrReentrantLock is returned by Fetch when a compute function fetches the
// same key it is currently computing. Waiting would deadlock; recomputing
// would break the at-most-once guarantee. Nested fetches for other keys are
// allowed.
var ErrReentrantLock = errors.New("cache: reentrant lock acquisition")

func notFound[K any](k K) error {
	return fmt.Errorf("%w: %v", ErrKeyNotFound, k)
}

func reentrant[K any](k K) error {
	return fmt.Errorf("%w: %v", ErrReentrantLock, k)
}
