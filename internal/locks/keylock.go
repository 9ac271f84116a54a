package locks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// KeyLocker serializes short read-then-write sequences on a shared key.
// Unlock releases the lock; it is always safe to call.
type KeyLocker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (Unlock, error)
}

// Unlock releases a held lock.
type Unlock func()

// redisKeyLocker implements KeyLocker with SET NX PX. If redis is
// unreachable the caller proceeds without the lock, preserving the
// original best-effort behavior of the dedup and aggregation checks.
type redisKeyLocker struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisKeyLocker builds a redis-backed locker.
func NewRedisKeyLocker(client *redis.Client, logger *zap.Logger) KeyLocker {
	return &redisKeyLocker{client: client, logger: logger}
}

func (l *redisKeyLocker) Lock(ctx context.Context, key string, ttl time.Duration) (Unlock, error) {
	if l.client == nil {
		return func() {}, nil
	}
	token := uuid.NewString()
	lockKey := "lock:" + key

	deadline := time.Now().Add(ttl)
	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, ttl).Result()
		if err != nil {
			l.logger.Warn("key lock unavailable; proceeding without serialization",
				zap.String("key", key), zap.Error(err))
			return func() {}, nil
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			l.logger.Warn("key lock contended past ttl; proceeding without serialization",
				zap.String("key", key))
			return func() {}, nil
		}
		select {
		case <-ctx.Done():
			return func() {}, ctx.Err()
		case <-time.After(25 * time.Millisecond):
		}
	}

	return func() {
		// Delete only if we still own the lock.
		const script = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`
		if err := l.client.Eval(context.Background(), script, []string{lockKey}, token).Err(); err != nil {
			l.logger.Warn("key lock release failed", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

// NoopLocker never blocks. Used in tests and when redis is absent.
type NoopLocker struct{}

func (NoopLocker) Lock(ctx context.Context, key string, ttl time.Duration) (Unlock, error) {
	return func() {}, nil
}
