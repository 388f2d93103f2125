package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/secforge/billing/internal/shared/utils"
)

// RateLimiter is a Redis fixed-window counter keyed by the authenticated user,
// falling back to the client IP. Shared across instances through Redis.
type RateLimiter struct {
	redisClient *redis.Client
	name        string
	limit       int
	window      time.Duration
}

func NewRateLimiter(redisClient *redis.Client, name string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		redisClient: redisClient,
		name:        name,
		limit:       limit,
		window:      window,
	}
}

func (rl *RateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl == nil || rl.redisClient == nil || rl.limit <= 0 {
			c.Next()
			return
		}

		subject := "ip:" + c.ClientIP()
		if userID := UserID(c); userID != "" {
			subject = "user:" + userID
		}
		windowBucket := time.Now().Unix() / int64(rl.window.Seconds())
		key := fmt.Sprintf("ratelimit:%s:%s:%d", rl.name, subject, windowBucket)

		ctx := c.Request.Context()
		count, err := rl.redisClient.Incr(ctx, key).Result()
		if err != nil {
			// Fail open when Redis is down.
			c.Next()
			return
		}
		if count == 1 {
			rl.redisClient.Expire(ctx, key, rl.window+time.Second)
		}

		if count > int64(rl.limit) {
			resetIn := rl.window - time.Duration(time.Now().Unix()%int64(rl.window.Seconds()))*time.Second
			c.Header("Retry-After", strconv.Itoa(int(resetIn.Seconds())))
			utils.AbortWithError(c, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
			return
		}
		c.Next()
	}
}
