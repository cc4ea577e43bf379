package driven

import (
	"context"
	"time"
)

// DistributedLock serializes writes to one document's chunk set across goroutines
// and instances. Names are scoped by the caller, e.g. "document:<id>".
type DistributedLock interface {
	// Acquire attempts to take the named lock for at most ttl.
	// Returns false without error when another holder has it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release gives up a lock taken by this instance.
	// Safe to call when the lock is not held or has expired.
	Release(ctx context.Context, name string) error

	// Ping checks if the lock backend is healthy
	Ping(ctx context.Context) error
}
