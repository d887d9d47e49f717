package lock

import (
	"context"
	"sync"
	"time"

	"github.com/lpai/backend/internal/domain/lock"
)

// InMemoryInstallLock implements InstallLock with an in-process map.
// Suitable for tests and single-instance development only: it does not
// survive restarts and cannot serialize runs across instances.
type InMemoryInstallLock struct {
	mu      sync.Mutex
	entries map[string]lockEntry
}

type lockEntry struct {
	owner     string
	expiresAt time.Time
}

// NewInMemoryInstallLock creates an in-memory install lock
func NewInMemoryInstallLock() *InMemoryInstallLock {
	return &InMemoryInstallLock{
		entries: make(map[string]lockEntry),
	}
}

// Acquire inserts the lock if absent or expired
func (l *InMemoryInstallLock) Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if e, ok := l.entries[key]; ok && now.Before(e.expiresAt) {
		return false, nil
	}
	l.entries[key] = lockEntry{owner: owner, expiresAt: now.Add(ttl)}
	return true, nil
}

// Release removes the lock if owner matches the current holder
func (l *InMemoryInstallLock) Release(ctx context.Context, key, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.entries[key]; ok && e.owner == owner {
		delete(l.entries, key)
	}
	return nil
}

// Holder returns the current owner of a key (for tests/monitoring)
func (l *InMemoryInstallLock) Holder(key string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return "", false
	}
	return e.owner, true
}

// Ensure InMemoryInstallLock implements InstallLock
var _ lock.InstallLock = (*InMemoryInstallLock)(nil)
