package utils

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = time.Hour

// Cache stores JSON-encoded values under string keys. Failures are logged
// and treated as misses; a cache is never the source of truth.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) bool
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration)
	Delete(ctx context.Context, keys ...string)
}

// NewCache prefers Redis and falls back to an in-process cache.
func NewCache() Cache {
	if rc := GetRedis(); rc != nil {
		return NewRedisCache(rc)
	}
	return NewMemoryCache()
}

// RedisCache is a Cache backed by Redis.
type RedisCache struct {
	rc *redis.Client
}

func NewRedisCache(rc *redis.Client) *RedisCache {
	return &RedisCache{rc: rc}
}

func (c *RedisCache) GetJSON(ctx context.Context, key string, dst interface{}) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	b, err := c.rc.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			Sugar.Debugf("cache get failed key=%s err=%v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		Sugar.Warnf("cache decode failed key=%s err=%v", key, err)
		return false
	}
	return true
}

func (c *RedisCache) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.rc.Set(ctx, key, b, ttl).Err(); err != nil {
		Sugar.Warnf("cache set failed key=%s err=%v", key, err)
	}
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.rc.Del(ctx, keys...).Err(); err != nil {
		Sugar.Warnf("cache delete failed keys=%s err=%v", strings.Join(keys, ","), err)
	}
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is a single-instance Cache used when Redis is unavailable.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: map[string]memoryEntry{}, now: time.Now}
}

func (c *MemoryCache) GetJSON(_ context.Context, key string, dst interface{}) bool {
	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		ok = false
	}
	c.mu.Unlock()
	if !ok {
		return false
	}
	return json.Unmarshal(entry.value, dst) == nil
}

func (c *MemoryCache) SetJSON(_ context.Context, key string, v interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.mu.Lock()
	c.entries[key] = memoryEntry{value: b, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

func (c *MemoryCache) Delete(_ context.Context, keys ...string) {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	c.mu.Unlock()
}
