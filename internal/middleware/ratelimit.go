package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/stemsi/quizdesk-portal/internal/config"
	"github.com/stemsi/quizdesk-portal/internal/response"
)

// RateLimiter counts requests per client IP in fixed windows stored in Redis,
// so every portal instance draws from one budget.
type RateLimiter struct {
	rdb    *redis.Client
	scope  string
	limit  int64
	window time.Duration
	now    func() time.Time
}

// NewRateLimiter allows limit requests per window for each IP. Routes sharing
// a scope share the budget.
func NewRateLimiter(rdb *redis.Client, scope string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		rdb:    rdb,
		scope:  scope,
		limit:  int64(limit),
		window: window,
		now:    time.Now,
	}
}

// Middleware rejects requests over the budget with 429 and a Retry-After.
// It fails open when Redis errors.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		wait, err := rl.take(c.Request.Context(), c.ClientIP())
		if err != nil {
			_ = c.Error(err)
			c.Next()
			return
		}
		if wait > 0 {
			c.Header("Retry-After", strconv.Itoa(int((wait+time.Second-1)/time.Second)))
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}

// take spends one request from ip's current window. It returns how long until
// the window resets when the budget is exhausted, zero otherwise.
func (rl *RateLimiter) take(ctx context.Context, ip string) (time.Duration, error) {
	now := rl.now()
	start := now.Truncate(rl.window)
	key := config.CacheKey.RateLimitKey(rl.scope, ip, start.Unix())

	pipe := rl.rdb.TxPipeline()
	count := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	if count.Val() <= rl.limit {
		return 0, nil
	}
	return start.Add(rl.window).Sub(now), nil
}
