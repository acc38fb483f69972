package http

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const limiterIdleTimeout = 10 * time.Minute

// ipRateLimiter mantiene un token bucket por IP de cliente.
type ipRateLimiter struct {
	limiters    sync.Map // map[string]*ipLimiterEntry
	rate        rate.Limit
	burst       int
	mu          sync.Mutex
	lastCleanup time.Time
}

type ipLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

func newIPRateLimiter(perMinute int) *ipRateLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	return &ipRateLimiter{
		rate:        rate.Limit(float64(perMinute) / time.Minute.Seconds()),
		burst:       perMinute,
		lastCleanup: time.Now(),
	}
}

func (rl *ipRateLimiter) get(key string) *rate.Limiter {
	now := time.Now()
	if v, ok := rl.limiters.Load(key); ok {
		entry := v.(*ipLimiterEntry)
		entry.lastSeen.Store(now.UnixNano())
		return entry.limiter
	}
	entry := &ipLimiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
	entry.lastSeen.Store(now.UnixNano())
	actual, _ := rl.limiters.LoadOrStore(key, entry)
	rl.maybeCleanup(now)
	return actual.(*ipLimiterEntry).limiter
}

// maybeCleanup descarta buckets sin uso para no acumular IPs efimeras.
func (rl *ipRateLimiter) maybeCleanup(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if now.Sub(rl.lastCleanup) < limiterIdleTimeout {
		return
	}
	rl.lastCleanup = now
	rl.limiters.Range(func(key, value any) bool {
		if now.UnixNano()-value.(*ipLimiterEntry).lastSeen.Load() > int64(limiterIdleTimeout) {
			rl.limiters.Delete(key)
		}
		return true
	})
}

// rateLimitByIP limita requests por IP de cliente. Al exceder responde 429
// con Retry-After.
func rateLimitByIP(perMinute int, logger *zap.Logger) gin.HandlerFunc {
	rl := newIPRateLimiter(perMinute)
	return func(c *gin.Context) {
		key := c.ClientIP()
		limiter := rl.get(key)
		if !limiter.Allow() {
			reservation := limiter.Reserve()
			delay := reservation.Delay()
			reservation.Cancel()
			retryAfter := max(int(delay.Seconds()), 1)

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			logger.Warn("rate limit exceeded",
				zap.String("request_id", RequestID(c)),
				zap.String("client_ip", key),
				zap.String("path", c.Request.URL.Path),
				zap.Int("retry_after", retryAfter),
			)
			abortWithError(c, http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "Too many requests, please try again later", nil)
			return
		}
		c.Next()
	}
}
