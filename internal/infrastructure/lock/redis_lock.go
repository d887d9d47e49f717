package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lpai/backend/internal/domain/lock"
)

// releaseScript deletes the lock only when the stored owner token matches
// the caller's. This prevents releasing a lock acquired by a competing run
// after ours expired.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// RedisInstallLock implements InstallLock using Redis conditional writes.
// This is suitable for distributed deployments where multiple instances
// (or retried webhook deliveries) can race to start an onboarding run.
type RedisInstallLock struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisInstallLock creates a Redis-backed install lock
func NewRedisInstallLock(addr, password string, db int) (*RedisInstallLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisInstallLock{
		client:    client,
		keyPrefix: "lock:",
	}, nil
}

// NewRedisInstallLockWithClient creates a lock with an existing Redis client
// This is useful for testing or when sharing a client across components
func NewRedisInstallLockWithClient(client *redis.Client, keyPrefix string) *RedisInstallLock {
	if keyPrefix == "" {
		keyPrefix = "lock:"
	}
	return &RedisInstallLock{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Acquire attempts an atomic insert-if-absent with TTL. Redis expires the
// key on its own, so overwrite-if-expired comes for free: SETNX succeeds
// once the previous holder's TTL has lapsed.
func (l *RedisInstallLock) Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.keyPrefix+key, owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", lock.ErrLockUnavailable, err)
	}
	return ok, nil
}

// Release removes the lock if owner still holds it. Idempotent: a missing
// key or a mismatched owner is a no-op.
func (l *RedisInstallLock) Release(ctx context.Context, key, owner string) error {
	if err := l.client.Eval(ctx, releaseScript, []string{l.keyPrefix + key}, owner).Err(); err != nil {
		return fmt.Errorf("%w: %v", lock.ErrLockUnavailable, err)
	}
	return nil
}

// Close closes the Redis client
func (l *RedisInstallLock) Close() error {
	return l.client.Close()
}

// Ensure RedisInstallLock implements InstallLock
var _ lock.InstallLock = (*RedisInstallLock)(nil)
