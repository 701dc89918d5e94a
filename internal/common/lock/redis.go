package lock

import (
	"context"
	"time"

	"mortgage-workflow/internal/common/errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX and a token-checked release.
type RedisLocker struct {
	client   redis.UniversalClient
	opts     Options
	newToken func() string
}

func NewRedisLocker(client redis.UniversalClient, opts Options) *RedisLocker {
	return &RedisLocker{
		client:   client,
		opts:     opts.withDefaults(),
		newToken: func() string { return uuid.New().String() },
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (Lease, error) {
	fullKey := l.opts.KeyPrefix + key
	token := l.newToken()
	deadline := time.Now().Add(l.opts.WaitFor)

	for {
		ok, err := l.client.SetNX(ctx, fullKey, token, l.opts.TTL).Result()
		if err != nil {
			return nil, errors.NewStorageFailureError("acquire lock "+fullKey, err)
		}
		if ok {
			return &redisLease{client: l.client, key: fullKey, token: token}, nil
		}
		if !time.Now().Before(deadline) {
			return nil, errors.NewLockUnavailableError(fullKey)
		}

		select {
		case <-ctx.Done():
			return nil, errors.NewLockUnavailableError(fullKey)
		case <-time.After(l.opts.RetryEvery):
		}
	}
}

type redisLease struct {
	client redis.UniversalClient
	key    string
	token  string
}

func (r *redisLease) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, r.client, []string{r.key}, r.token).Err(); err != nil && err != redis.Nil {
		return errors.NewStorageFailureError("release lock "+r.key, err)
	}
	return nil
}
