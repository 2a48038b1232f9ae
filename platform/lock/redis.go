package lock

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX and a Lua compare-and-delete.
type RedisLocker struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisLocker creates a locker storing keys under prefix.
func NewRedisLocker(client redis.UniversalClient, prefix string) *RedisLocker {
	return &RedisLocker{client: client, prefix: prefix}
}

// NewRedisClient parses a redis:// or rediss:// URL into a client.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opt), nil
}

// Acquire implements Locker.
func (l *RedisLocker) Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return l.client.SetNX(ctx, l.prefix+key, owner, ttl).Result()
}

// Release implements Locker.
func (l *RedisLocker) Release(ctx context.Context, key, owner string) (bool, error) {
	deleted, err := releaseScript.Run(ctx, l.client, []string{l.prefix + key}, owner).Int64()
	if err != nil {
		return false, err
	}
	return deleted == 1, nil
}

var _ Locker = (*RedisLocker)(nil)
