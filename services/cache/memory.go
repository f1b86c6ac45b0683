package cachesvc

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/educa/core"
)

type memoryEntry struct {
	data    []byte
	expires time.Time // zero: never
}

// MemoryCache is a process local cache, used when no redis server is configured.
// Values are stored JSON encoded so that readers never share memory with writers.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

var _ core.Cache = (*MemoryCache)(nil)

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

func (c *MemoryCache) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || (!entry.expires.IsZero() && time.Now().After(entry.expires)) {
		return false, nil
	}
	if err := json.Unmarshal(entry.data, dst); err != nil {
		return false, errors.Wrap(err, "decoding cached value")
	}
	return true, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, val interface{}, ttl time.Duration) error {
	data, err := json.Marshal(val)
	if err != nil {
		return errors.Wrap(err, "encoding cache value")
	}
	entry := memoryEntry{data: data}
	if ttl > 0 {
		entry.expires = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	c.mu.Unlock()
	return nil
}

// NoopCache never stores anything.
type NoopCache struct{}

var _ core.Cache = NoopCache{}

func (NoopCache) Get(context.Context, string, interface{}) (bool, error)        { return false, nil }
func (NoopCache) Set(context.Context, string, interface{}, time.Duration) error { return nil }
func (NoopCache) Delete(context.Context, ...string) error                       { return nil }
