package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/wikiquest/wikiquest/config"
	"github.com/wikiquest/wikiquest/utils"
)

type rateLimiter struct {
	limiter *rate.Limiter
	expires time.Time
}

const (
	limiterIdleTTL    = 5 * time.Minute
	limiterSweepEvery = time.Minute
)

// limiterSet holds one token bucket per client key. Idle buckets are swept
// at most once per limiterSweepEvery.
type limiterSet struct {
	mu        sync.Mutex
	limiters  map[string]*rateLimiter
	limit     rate.Limit
	burst     int
	now       func() time.Time
	nextSweep time.Time
}

func newLimiterSet(limit rate.Limit, burst int) *limiterSet {
	return &limiterSet{
		limiters: map[string]*rateLimiter{},
		limit:    limit,
		burst:    burst,
		now:      time.Now,
	}
}

// RateLimitMiddleware applies a token bucket per authenticated user, or per
// client IP for anonymous requests.
func RateLimitMiddleware() gin.HandlerFunc {
	cfg := config.Get()
	perMinute := max(cfg.RateLimitPerMinute, 1)
	set := newLimiterSet(rate.Every(time.Minute/time.Duration(perMinute)), max(perMinute/2, 1))

	return func(ctx *gin.Context) {
		key := "ip:" + ctx.ClientIP()
		if v, ok := ctx.Get(ContextUserIDKey); ok {
			key = fmt.Sprintf("user:%v", v)
		}

		if !set.get(key).Allow() {
			utils.Error(ctx, http.StatusTooManyRequests, 42901, "rate limit exceeded")
			ctx.Abort()
			return
		}

		ctx.Next()
	}
}

func (s *limiterSet) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !now.Before(s.nextSweep) {
		for k, l := range s.limiters {
			if now.After(l.expires) {
				delete(s.limiters, k)
			}
		}
		s.nextSweep = now.Add(limiterSweepEvery)
	}

	if l, ok := s.limiters[key]; ok {
		l.expires = now.Add(limiterIdleTTL)
		return l.limiter
	}

	l := &rateLimiter{
		limiter: rate.NewLimiter(s.limit, s.burst),
		expires: now.Add(limiterIdleTTL),
	}
	s.limiters[key] = l
	return l.limiter
}
