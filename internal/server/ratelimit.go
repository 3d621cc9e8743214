package server

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// rateLimitConfig holds per-IP limiter settings for the auth endpoints
type rateLimitConfig struct {
	limit           rate.Limit
	burst           int
	cleanupInterval time.Duration
}

// defaultAuthRateLimit allows 10 auth attempts per minute per client IP
func defaultAuthRateLimit() rateLimitConfig {
	return rateLimitConfig{
		limit:           rate.Limit(10.0 / 60.0),
		burst:           10,
		cleanupInterval: 5 * time.Minute,
	}
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// ipRateLimiter tracks one token bucket per client IP
type ipRateLimiter struct {
	config rateLimitConfig

	mu       sync.Mutex
	limiters map[string]*limiterEntry
}

func newIPRateLimiter(config rateLimitConfig) *ipRateLimiter {
	rl := &ipRateLimiter{
		config:   config,
		limiters: make(map[string]*limiterEntry),
	}

	go rl.cleanupLoop()

	return rl
}

func (rl *ipRateLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			retryAfter := int(math.Ceil(1.0 / float64(rl.config.limit)))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{"detail": "Too many attempts, try again later"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func (rl *ipRateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, exists := rl.limiters[ip]
	if !exists {
		entry = &limiterEntry{
			limiter: rate.NewLimiter(rl.config.limit, rl.config.burst),
		}
		rl.limiters[ip] = entry
	}
	entry.lastAccess = time.Now()

	return entry.limiter.Allow()
}

func (rl *ipRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.cleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		ttl := rl.config.cleanupInterval * 2
		now := time.Now()

		rl.mu.Lock()
		for ip, entry := range rl.limiters {
			if now.Sub(entry.lastAccess) > ttl {
				delete(rl.limiters, ip)
			}
		}
		rl.mu.Unlock()
	}
}
