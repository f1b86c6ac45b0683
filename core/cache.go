package core

import (
	"context"
	"time"
)

// Cache is a key/value store for serializable values.
type Cache interface {
	// Get decodes the value stored at key into dst and reports whether the key was found.
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, key string, val interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
