// Package cachesvc implements core.Cache on redis and in process memory.
package cachesvc

import (
	"context"

	"github.com/trezcool/educa/core"
)

// New returns the redis cache at conf.Cache.RedisURL, or a process-local MemoryCache when none is configured.
func New(ctx context.Context, conf *core.Config) (core.Cache, error) {
	if conf.Cache.RedisURL == "" {
		return NewMemoryCache(), nil
	}
	c, err := NewRedisCache(ctx, conf.Cache.RedisURL, conf)
	if err != nil {
		return nil, err
	}
	return c, nil
}
