package middleware

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ellavondegurechaff/materialpool/backend/utils"
	"github.com/gofiber/fiber/v2"
)

// RateLimiter implements a simple in-memory sliding window rate limiter
type RateLimiter struct {
	requests map[string][]time.Time
	mutex    sync.Mutex
	window   time.Duration
	limit    int
	now      func() time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		window:   window,
		limit:    limit,
		now:      time.Now,
	}

	go rl.cleanup()

	return rl
}

// Allow checks if a request should be allowed
func (rl *RateLimiter) Allow(key string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	validRequests := rl.prune(rl.requests[key], now.Add(-rl.window))

	if len(validRequests) >= rl.limit {
		rl.requests[key] = validRequests
		return false
	}

	rl.requests[key] = append(validRequests, now)
	return true
}

func (rl *RateLimiter) prune(requests []time.Time, cutoff time.Time) []time.Time {
	valid := requests[:0]
	for _, req := range requests {
		if req.After(cutoff) {
			valid = append(valid, req)
		}
	}
	return valid
}

// cleanup removes idle keys from the rate limiter
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mutex.Lock()
		cutoff := rl.now().Add(-rl.window * 2)
		for key, requests := range rl.requests {
			if valid := rl.prune(requests, cutoff); len(valid) == 0 {
				delete(rl.requests, key)
			} else {
				rl.requests[key] = valid
			}
		}
		rl.mutex.Unlock()
	}
}

// KeyFunc picks the bucket a request is counted in
type KeyFunc func(c *fiber.Ctx) string

// ByIP buckets by client address
func ByIP(c *fiber.Ctx) string {
	return utils.GetIPAddress(c)
}

// ByUser buckets by session user, falling back to the client address
func ByUser(c *fiber.Ctx) string {
	if session, ok := utils.ExtractUserSession(c); ok {
		return fmt.Sprintf("user:%d", session.UserID)
	}
	return ByIP(c)
}

// RateLimit middleware limits requests per IP address
func RateLimit(limit int, window time.Duration) fiber.Handler {
	return RateLimitBy(NewRateLimiter(limit, window), ByIP)
}

// RateLimitBy limits requests with limiter, bucketed by key
func RateLimitBy(limiter *RateLimiter, key KeyFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		k := key(c)

		if !limiter.Allow(k) {
			slog.Warn("Rate limit exceeded",
				slog.String("key", k),
				slog.String("path", c.Path()),
				slog.String("method", c.Method()),
				slog.Int("limit", limiter.limit),
				slog.Duration("window", limiter.window))

			return utils.SendError(c, fiber.StatusTooManyRequests, utils.CodeRateLimited,
				"Too many requests. Please try again later.", nil)
		}

		return c.Next()
	}
}

// AuthRateLimit middleware limits login attempts
func AuthRateLimit() fiber.Handler {
	return RateLimit(5, time.Minute)
}

// APIRateLimit middleware limits API requests
func APIRateLimit() fiber.Handler {
	return RateLimit(300, time.Minute)
}

// ClaimRateLimit limits claim attempts per user
func ClaimRateLimit() fiber.Handler {
	return RateLimitBy(NewRateLimiter(30, time.Minute), ByUser)
}

// UploadRateLimit middleware limits import uploads
func UploadRateLimit() fiber.Handler {
	return RateLimitBy(NewRateLimiter(20, time.Hour), ByUser)
}
