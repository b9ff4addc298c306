package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	defaultRateLimitTimeout = 250 * time.Millisecond
	rateLimitKeyPrefix      = "ratelimit:"
)

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Timeout  time.Duration
}

// RateLimiter counts requests per client in fixed windows kept in Redis, so
// every replica of a service shares the same budget.
type RateLimiter struct {
	client  *redis.Client
	service string
	limit   int
	window  time.Duration
	timeout time.Duration
	now     func() time.Time
}

func NewRateLimiter(client *redis.Client, service string, cfg RateLimitConfig) *RateLimiter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRateLimitTimeout
	}
	return &RateLimiter{
		client:  client,
		service: service,
		limit:   cfg.Requests,
		window:  cfg.Window,
		timeout: cfg.Timeout,
		now:     time.Now,
	}
}

// Allow consumes one request from key's budget in the current window and
// reports whether it was within the limit and how many requests remain.
func (r *RateLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	windowStart := r.now().Truncate(r.window)
	redisKey := fmt.Sprintf("%s%s:%s:%d", rateLimitKeyPrefix, r.service, key, windowStart.Unix())

	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return true, r.limit, fmt.Errorf("rate limiter incr error: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, redisKey, r.window).Err(); err != nil {
			return true, r.limit - 1, fmt.Errorf("rate limiter expire error: %w", err)
		}
	}

	remaining := r.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return count <= int64(r.limit), remaining, nil
}

// RateLimit rejects clients over their budget with 429. When Redis is
// unavailable requests are let through.
func RateLimit(limiter *RateLimiter, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		allowed, remaining, err := limiter.Allow(c.Request.Context(), ip)
		if err != nil {
			logger.Warn("Rate limiter unavailable, allowing request",
				zap.Error(err), zap.String("client_ip", ip))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			logger.Warn("Rate limit exceeded", zap.String("client_ip", ip))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}

		c.Next()
	}
}
