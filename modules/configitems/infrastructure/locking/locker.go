package locking

import (
	"context"
	"errors"
	"time"
)

var ErrNotAcquired = errors.New("lock is held by another import")

// Lock is a held lock. Release is safe to call more than once.
type Lock interface {
	Release(ctx context.Context) error
}

// Locker serializes work on a key. Acquire blocks until the lock is obtained or ctx
// is done. Backends with expiry keep a held lock alive and let it lapse ttl after the
// holder stops.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}
