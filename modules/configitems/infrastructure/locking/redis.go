package locking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// refreshScript extends the key only while it still holds our token.
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker coordinates imports across processes with SET NX PX. A held lock is
// extended every third of its ttl until it is released, so ttl bounds how long a
// crashed holder blocks the key, not how long an import may run.
type RedisLocker struct {
	client       *redis.Client
	prefix       string
	pollInterval time.Duration
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client, prefix: "configitems:import-lock:", pollInterval: 50 * time.Millisecond}
}

// NewRedisLockerFromURL parses a redis:// URL.
func NewRedisLockerFromURL(url string) (*RedisLocker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return NewRedisLocker(redis.NewClient(opts)), nil
}

func (l *RedisLocker) Close() error {
	return l.client.Close()
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	redisKey := l.prefix + key
	token := uuid.NewString()
	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, ttl).Result()
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if ok {
			lock := &redisLock{
				client: l.client,
				key:    redisKey,
				token:  token,
				stop:   make(chan struct{}),
				done:   make(chan struct{}),
			}
			go lock.keepAlive(ttl)
			return lock, nil
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrNotAcquired, ctx.Err())
		case <-ticker.C:
		}
	}
}

type redisLock struct {
	client *redis.Client
	key    string
	token  string
	once   sync.Once
	stop   chan struct{}
	done   chan struct{}
}

// keepAlive extends the key until Release or until the key is no longer ours.
func (r *redisLock) keepAlive(ttl time.Duration) {
	defer close(r.done)
	interval := ttl / 3
	if interval < time.Millisecond {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			n, err := refreshScript.Run(ctx, r.client, []string{r.key}, r.token, ttl.Milliseconds()).Int()
			cancel()
			if err == nil && n == 0 {
				return
			}
		}
	}
}

func (r *redisLock) Release(ctx context.Context) error {
	r.once.Do(func() { close(r.stop) })
	<-r.done
	err := releaseScript.Run(ctx, r.client, []string{r.key}, r.token).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}
