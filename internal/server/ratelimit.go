package server

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitConfig holds fixed-window budgets per window
type RateLimitConfig struct {
	Enabled        bool
	Window         time.Duration
	RequestsPerWin int
	AuthPerWin     int
}

// RateLimiter enforces Redis-backed fixed-window limits,
// keyed per user where authenticated and per IP otherwise
type RateLimiter struct {
	logger *zap.Logger
	redis  *redis.Client
	cfg    RateLimitConfig
}

// NewRateLimiter creates a rate limiter. A nil Redis client disables limiting.
func NewRateLimiter(logger *zap.Logger, redisClient *redis.Client, cfg RateLimitConfig) *RateLimiter {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.RequestsPerWin <= 0 {
		cfg.RequestsPerWin = 300
	}
	if cfg.AuthPerWin <= 0 {
		cfg.AuthPerWin = 10
	}
	return &RateLimiter{logger: logger, redis: redisClient, cfg: cfg}
}

// Middleware limits general API traffic per authenticated user, falling back to IP
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.enabled() {
			c.Next()
			return
		}

		key := "ratelimit:api:" + r.subjectKey(c)
		if !r.allow(c, key, r.cfg.RequestsPerWin) {
			return
		}
		c.Next()
	}
}

// AuthMiddleware applies the stricter per-IP budget for login and register
func (r *RateLimiter) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.enabled() {
			c.Next()
			return
		}

		key := "ratelimit:auth:" + c.ClientIP()
		if !r.allow(c, key, r.cfg.AuthPerWin) {
			return
		}
		c.Next()
	}
}

func (r *RateLimiter) enabled() bool {
	return r.cfg.Enabled && r.redis != nil
}

func (r *RateLimiter) subjectKey(c *gin.Context) string {
	if userID, exists := c.Get("userID"); exists {
		if id, ok := userID.(uuid.UUID); ok {
			return "user:" + id.String()
		}
	}
	return "ip:" + c.ClientIP()
}

// allow increments the window counter, aborting the request over budget.
// Redis failures fail open.
func (r *RateLimiter) allow(c *gin.Context, key string, budget int) bool {
	ctx := c.Request.Context()

	count, err := r.redis.Incr(ctx, key).Result()
	if err != nil {
		r.logger.Warn("Rate limit check failed", zap.String("key", key), zap.Error(err))
		return true
	}
	if count == 1 {
		if err := r.redis.Expire(ctx, key, r.cfg.Window).Err(); err != nil {
			r.logger.Warn("Rate limit expire failed", zap.String("key", key), zap.Error(err))
		}
	}

	if count > int64(budget) {
		c.Header("Retry-After", fmt.Sprintf("%d", int(r.cfg.Window.Seconds())))
		c.JSON(429, gin.H{"success": false, "error": errorBody{Message: "rate limit exceeded"}})
		c.Abort()
		return false
	}

	return true
}
