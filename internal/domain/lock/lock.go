// Package lock defines the install lock port: a short-lived distributed
// mutual-exclusion record preventing concurrent onboarding runs for one
// tenant. Implementations must use conditional writes against a shared
// store so the lock holds across process restarts and horizontal
// scale-out; an in-process mutex is insufficient.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrLockUnavailable indicates the lock backend could not be reached
var ErrLockUnavailable = errors.New("lock: backend unavailable")

// InstallLock is the distributed mutual-exclusion port
type InstallLock interface {
	// Acquire attempts an atomic insert-if-absent (or overwrite-if-expired)
	// of the lock record. It returns false when a non-expired lock already
	// exists; callers must treat that as "run already in progress", not as
	// an error.
	Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)

	// Release removes the lock if owner matches the current holder. It is
	// idempotent: releasing an absent lock or one held by another owner is
	// a no-op.
	Release(ctx context.Context, key, owner string) error
}

// Key builds the lock key for a tenant install
func Key(companyID, locationID string) string {
	return "install:" + companyID + ":" + locationID
}
