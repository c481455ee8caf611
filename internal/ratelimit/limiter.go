package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter decides whether a caller identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// RedisLimiter is a fixed-window counter shared across API replicas.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// NewRedisLimiter creates a limiter allowing limit requests per window.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window, prefix: "creatorkit:ratelimit"}
}

func (l *RedisLimiter) windowKey(key string, now time.Time) string {
	return fmt.Sprintf("%s:%s:%d", l.prefix, key, now.UnixNano()/int64(l.window))
}

// Allow increments the caller's counter for the current window.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	now := time.Now()
	k := l.windowKey(key, now)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("rate limit counter: %w", err)
	}

	if incr.Val() > int64(l.limit) {
		elapsed := time.Duration(now.UnixNano() % int64(l.window))
		return false, l.window - elapsed, nil
	}
	return true, 0, nil
}

// LocalLimiter keeps one token bucket per key in process memory.
type LocalLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// NewLocalLimiter creates a limiter with perMinute sustained requests and burst.
func NewLocalLimiter(perMinute, burst int) *LocalLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &LocalLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
	}
}

func (l *LocalLimiter) getLimiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, ok := l.limiters[key]; ok {
		return limiter
	}
	limiter := rate.NewLimiter(l.rps, l.burst)
	l.limiters[key] = limiter
	return limiter
}

// Allow takes a token from the caller's bucket without waiting.
func (l *LocalLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	limiter := l.getLimiter(key)
	r := limiter.Reserve()
	if !r.OK() {
		return false, 0, nil
	}
	if delay := r.Delay(); delay > 0 {
		r.Cancel()
		return false, delay, nil
	}
	return true, 0, nil
}

// Config selects between the shared and in-process limiter.
type Config struct {
	RequestsPerMinute int
	Burst             int
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
}

// New returns a RedisLimiter when Redis is configured and reachable,
// otherwise a LocalLimiter. The returned close func releases the client.
func New(ctx context.Context, cfg *Config) (Limiter, func() error, error) {
	if cfg.RedisAddr == "" {
		return NewLocalLimiter(cfg.RequestsPerMinute, cfg.Burst), func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		MinIdleConns: 2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisLimiter(client, cfg.RequestsPerMinute, time.Minute), client.Close, nil
}
