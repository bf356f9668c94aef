package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotAcquired means another holder owns the key right now. Callers map
// it to a retryable domain error.
var ErrLockNotAcquired = errors.New("lock not acquired")

const lockPrefix = "lock:"

// Locker serializes a booking check and insert across api-server replicas.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// RedisLocker stores one token per held key with a TTL, so a crashed holder
// frees the key on expiry.
type RedisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisLocker(client redis.UniversalClient, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl}
}

// WithLock runs fn while holding key. fn's context expires with the TTL.
func (l *RedisLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	key = lockPrefix + key
	token := uuid.NewString()

	acquired, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !acquired {
		return ErrLockNotAcquired
	}
	// Release even if the request context was cancelled mid-section.
	defer func() { _ = l.releaseIfOwner(context.WithoutCancel(ctx), key, token) }()

	held, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()
	return fn(held)
}

// compareAndDelete only removes the key when it still carries our token; an
// expired lock may already belong to someone else.
var compareAndDelete = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

func (l *RedisLocker) releaseIfOwner(ctx context.Context, key, token string) error {
	if err := compareAndDelete.Run(ctx, l.client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock %s: %w", key, err)
	}
	return nil
}

// NoopLocker runs fn directly, for single-replica runs without Redis and for
// tests. The unique index still rejects double bookings.
type NoopLocker struct{}

func (NoopLocker) WithLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
