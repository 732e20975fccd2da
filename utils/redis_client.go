package utils

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wikiquest/wikiquest/config"
)

var (
	redisClient *redis.Client
	redisOnce   sync.Once
)

// GetRedis returns a singleton Redis client based on loaded config, or nil
// when Redis is unreachable so callers can fall back to in-process state.
func GetRedis() *redis.Client {
	redisOnce.Do(func() {
		cfg := config.Get()
		rc := redis.NewClient(&redis.Options{
			Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  3 * time.Second,
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 2 * time.Second,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Ping(ctx).Err(); err != nil {
			Sugar.Warnf("redis unavailable, using in-process fallbacks: %v", err)
			_ = rc.Close()
			return
		}
		redisClient = rc
	})
	return redisClient
}

// UseRedis overrides the singleton; nil disables Redis. Must run before the first GetRedis call.
func UseRedis(rc *redis.Client) {
	redisOnce.Do(func() {})
	redisClient = rc
}
