package service

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisAllowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// redisLimiter es una ventana fija compartida entre instancias. Si Redis
// falla, deja pasar la solicitud.
type redisLimiter struct {
	client redisEvaler
	logger *zap.Logger
	window time.Duration
	max    int
	prefix string
}

func NewRedisLimiter(client *redis.Client, logger *zap.Logger, prefix string, window time.Duration, max int) RequestLimiter {
	if client == nil {
		return nil
	}
	return newRedisLimiter(client, logger, prefix, window, max)
}

func newRedisLimiter(client redisEvaler, logger *zap.Logger, prefix string, window time.Duration, max int) *redisLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &redisLimiter{
		client: client,
		logger: logger,
		window: window,
		max:    max,
		prefix: prefix,
	}
}

func (l *redisLimiter) Allow(ctx context.Context, key string) bool {
	if l == nil || l.client == nil {
		return true
	}
	normalizedKey := strings.ToLower(strings.TrimSpace(key))
	if normalizedKey == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	seconds := int(l.window.Seconds())
	if seconds <= 0 {
		seconds = 60
	}
	count, err := l.client.Eval(ctx, redisAllowScript, []string{l.prefix + normalizedKey}, seconds).Int()
	if err != nil {
		l.logger.Warn("redis rate limiter unavailable", zap.Error(err))
		return true
	}
	return count <= l.max
}
