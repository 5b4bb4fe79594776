package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/cppla/viewlog/config"
	"github.com/cppla/viewlog/utils"
)

const limiterIdleTTL = 5 * time.Minute

type rateLimiter struct {
	limiter *rate.Limiter
	expires time.Time
}

// limiterSet is a per-key token bucket registry; entries idle past their ttl are dropped.
type limiterSet struct {
	mu      sync.Mutex
	entries map[string]*rateLimiter
	limit   rate.Limit
	burst   int
}

func newLimiterSet(perMinute int) *limiterSet {
	perMinute = max(perMinute, 1)
	return &limiterSet{
		entries: map[string]*rateLimiter{},
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   max(perMinute/2, 1),
	}
}

func (s *limiterSet) allow(key string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, l := range s.entries {
		if now.After(l.expires) {
			delete(s.entries, k)
		}
	}

	l, ok := s.entries[key]
	if !ok {
		l = &rateLimiter{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.entries[key] = l
	}
	l.expires = now.Add(limiterIdleTTL)
	return l.limiter.AllowN(now, 1)
}

// RateLimitMiddleware applies a per client IP token bucket sized by RateLimitPerMinute.
// Each call gets its own bucket set, so routes are limited independently.
func RateLimitMiddleware() gin.HandlerFunc {
	set := newLimiterSet(config.Get().RateLimitPerMinute)

	return func(ctx *gin.Context) {
		if !set.allow(ctx.ClientIP(), time.Now()) {
			utils.Sugar.Warnw("rate limit exceeded", "ip", ctx.ClientIP(), "path", ctx.Request.URL.Path)
			utils.PlainError(ctx, http.StatusTooManyRequests, "リクエストが多すぎます。しばらくしてから再度お試しください。")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
