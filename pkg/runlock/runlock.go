// Package runlock provides a Redis-backed mutual exclusion lock for jobs that
// must not run concurrently across processes.
package runlock

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// DefaultKey is the lock key used by the order status sweep.
const DefaultKey = "shop:order-status-sweep"

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another holder is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock is a single named lock. Each successful TryLock owns a fresh token.
type Lock struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

// New returns a Lock on key. The ttl bounds how long a crashed holder can
// block others.
func New(client redis.Cmdable, key string, ttl time.Duration) *Lock {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Lock{client: client, key: key, ttl: ttl}
}

// Connect parses a redis:// URL and verifies the server is reachable.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return client, nil
}

// TryLock attempts to take the lock without waiting. When ok is true the
// caller must invoke release once done.
func (l *Lock) TryLock(ctx context.Context) (release func(context.Context) error, ok bool, err error) {
	token := uuid.NewString()
	ok, err = l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, errors.Wrapf(err, "acquire %q", l.key)
	}
	if !ok {
		return nil, false, nil
	}

	release = func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
			return errors.Wrapf(err, "release %q", l.key)
		}
		return nil
	}
	return release, true, nil
}
