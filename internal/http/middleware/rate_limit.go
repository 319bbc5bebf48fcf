package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/coursehub-backend/internal/http/response"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
)

// RateLimiter counts requests per client IP in fixed redis windows.
type RateLimiter struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewRateLimiter(log *logger.Logger, rdb *goredis.Client) *RateLimiter {
	return &RateLimiter{log: log.With("middleware", "RateLimiter"), rdb: rdb}
}

// Limit allows limit requests per window for each client IP under keySuffix.
// It is a no-op without redis and fails open when redis errors.
func (rl *RateLimiter) Limit(keySuffix string, limit int, window time.Duration) gin.HandlerFunc {
	if rl == nil || rl.rdb == nil || limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		key := fmt.Sprintf("rate_limit:%s:%s", keySuffix, c.ClientIP())
		ctx := c.Request.Context()

		count, err := rl.rdb.Incr(ctx, key).Result()
		if err != nil {
			rl.log.Warn("Rate limit check failed", "key", keySuffix, "error", err)
			c.Next()
			return
		}
		if count == 1 {
			rl.rdb.Expire(ctx, key, window)
		}
		if count > int64(limit) {
			ttl, _ := rl.rdb.TTL(ctx, key).Result()
			if ttl > 0 {
				c.Header("Retry-After", strconv.Itoa(int(ttl.Round(time.Second).Seconds())))
			}
			c.Abort()
			response.RespondError(c, http.StatusTooManyRequests, "throttled", errRateLimited)
			return
		}
		c.Next()
	}
}
