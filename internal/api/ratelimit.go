package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/auth"
)

// windowCounter increments the hit count of key within the current window.
type windowCounter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

type redisCounter struct {
	rdb *redis.Client
}

func (c redisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	res, err := fixedWindowScript.Run(ctx, c.rdb, []string{key}, window.Milliseconds()).Result()
	if err != nil {
		return 0, err
	}
	switch v := res.(type) {
	case int64:
		return v, nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected redis script result type %T", res)
	}
}

// RateLimiter is a fixed-window limiter shared by every server instance through Redis.
type RateLimiter struct {
	counter windowCounter
	limit   int
	window  time.Duration
	prefix  string
	logger  *slog.Logger
}

func NewRateLimiter(rdb *redis.Client, limit int, window time.Duration, prefix string, logger *slog.Logger) *RateLimiter {
	return newRateLimiter(redisCounter{rdb: rdb}, limit, window, prefix, logger)
}

func newRateLimiter(counter windowCounter, limit int, window time.Duration, prefix string, logger *slog.Logger) *RateLimiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	if prefix == "" {
		prefix = "rl"
	}
	return &RateLimiter{counter: counter, limit: limit, window: window, prefix: prefix, logger: logger}
}

// Middleware limits each authenticated user (or client IP when anonymous).
// Redis failures let the request through.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		who := auth.GetUserID(c)
		if who == "" {
			who = "ip:" + c.ClientIP()
		}

		count, err := rl.counter.Incr(c.Request.Context(), rl.prefix+":"+who, rl.window)
		if err != nil {
			rl.logger.WarnContext(c.Request.Context(), "rate limiter unavailable", "error", err)
			c.Next()
			return
		}
		if count > int64(rl.limit) {
			c.Header("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
