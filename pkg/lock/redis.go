package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/jdziat/resumable-jobs/pkg/core"
)

const keyPrefix = "jobs:lock:"

// lockKey returns the key for a named lock: jobs:lock:{name}
func lockKey(name string) string { return keyPrefix + name }

// releaseScript deletes the key only while it still carries our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements core.Locker on a Redis key with a TTL.
type RedisLocker struct {
	client goredis.Cmdable
}

var _ core.Locker = (*RedisLocker)(nil)

// NewRedisLocker creates a Redis-backed locker. The caller owns the client
// lifecycle.
func NewRedisLocker(client goredis.Cmdable) *RedisLocker {
	return &RedisLocker{client: client}
}

// Acquire sets the key with NX so an unexpired holder wins.
func (l *RedisLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (string, bool, error) {
	token := uuid.New().String()
	ok, err := l.client.SetNX(ctx, lockKey(name), token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("jobs/redis: acquire lock setnx: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release deletes the key if token still holds it.
func (l *RedisLocker) Release(ctx context.Context, name, token string) error {
	n, err := releaseScript.Run(ctx, l.client, []string{lockKey(name)}, token).Int()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("jobs/redis: release lock: %w", err)
	}
	if n == 0 {
		return core.ErrLockNotHeld
	}
	return nil
}

// Held reports whether the key exists.
func (l *RedisLocker) Held(ctx context.Context, name string) (bool, error) {
	n, err := l.client.Exists(ctx, lockKey(name)).Result()
	if err != nil {
		return false, fmt.Errorf("jobs/redis: lock exists: %w", err)
	}
	return n > 0, nil
}
