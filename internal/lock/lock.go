// Package lock provides a Redis backed advisory lock.  It is used to keep
// two instances from restoring the same payment at the same time; the
// database guards remain the source of truth.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotAcquired is returned when another holder owns the key.
	ErrNotAcquired = errors.New("lock: not acquired")
	// ErrUnavailable is returned when no Redis client is configured.
	ErrUnavailable = errors.New("lock: redis unavailable")
)

// releaseScript deletes the key only if it still holds our token, so a
// holder whose lease expired cannot release someone else's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements SET NX PX locking.
type RedisLocker struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisLocker returns a locker.  rdb may be nil, in which case every
// Lock call fails with ErrUnavailable.
func NewRedisLocker(rdb *redis.Client, prefix string) *RedisLocker {
	if prefix == "" {
		prefix = "lock"
	}
	return &RedisLocker{rdb: rdb, prefix: prefix}
}

func (l *RedisLocker) key(k string) string { return l.prefix + ":" + k }

// Lock acquires key for ttl and returns the token needed to release it.
func (l *RedisLocker) Lock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if l.rdb == nil {
		return "", ErrUnavailable
	}
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, l.key(key), token, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNotAcquired
	}
	return token, nil
}

// Unlock releases key if token still owns it.
func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	if l.rdb == nil {
		return ErrUnavailable
	}
	return releaseScript.Run(ctx, l.rdb, []string{l.key(key)}, token).Err()
}
