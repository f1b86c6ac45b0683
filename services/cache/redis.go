package cachesvc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/educa/core"
)

// RedisCache stores JSON encoded values in redis.
type RedisCache struct {
	client *redis.Client
	prefix string
}

var _ core.Cache = (*RedisCache)(nil)

// NewRedisCache connects to the redis server at redisURL (redis://[user:pass@]host:port/db).
func NewRedisCache(ctx context.Context, redisURL string, conf *core.Config) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing redis URL")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return &RedisCache{client: client, prefix: conf.AppName + ":"}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "getting cache key")
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, errors.Wrap(err, "decoding cached value")
	}
	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, val interface{}, ttl time.Duration) error {
	data, err := json.Marshal(val)
	if err != nil {
		return errors.Wrap(err, "encoding cache value")
	}
	return errors.Wrap(c.client.Set(ctx, c.prefix+key, data, ttl).Err(), "setting cache key")
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, 0, len(keys))
	for _, k := range keys {
		prefixed = append(prefixed, c.prefix+k)
	}
	return errors.Wrap(c.client.Del(ctx, prefixed...).Err(), "deleting cache keys")
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
