package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ax5-sect/server/internal/agent/model"
	errx "github.com/ax5-sect/server/internal/core/error"
)

const lockPollInterval = 100 * time.Millisecond

// releaseScript deletes the lock only when it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// RedisLocker implements model.Locker with SET NX PX and a token-checked release.
type RedisLocker struct {
	rdb    redis.Cmdable
	prefix string
}

func NewRedisLocker(rdb redis.Cmdable, prefix string) *RedisLocker {
	return &RedisLocker{rdb: rdb, prefix: prefix}
}

// Lock polls until the key is free or ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, key string, ttl time.Duration) (model.UnlockFunc, error) {
	lockKey := l.prefix + "lock:" + key
	token := uuid.NewString()

	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.rdb.SetNX(ctx, lockKey, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", lockKey, errx.WrapRedis(err))
		}
		if ok {
			return func(ctx context.Context) error {
				return releaseScript.Run(ctx, l.rdb, []string{lockKey}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

var _ model.Locker = (*RedisLocker)(nil)
