// Package ratelimit throttles callers of the authorization endpoints, either
// per process with golang.org/x/time/rate or across processes with Redis.
package ratelimit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"channels-core/internal/common/errors"
	"channels-core/internal/common/logging"
)

// Limiter decides whether a caller identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Config configures a LocalLimiter
type Config struct {
	RequestsPerSecond float64
	BurstSize         int
	MaxKeys           int
	CleanupPeriod     time.Duration
}

// DefaultConfig allows ten requests per second with bursts of twenty
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 10,
		BurstSize:         20,
		MaxKeys:           10000,
		CleanupPeriod:     10 * time.Minute,
	}
}

// Validate checks that rate and burst are positive
func (c Config) Validate() error {
	if c.RequestsPerSecond <= 0 {
		return errors.ConfigError("requests per second must be positive")
	}
	if c.BurstSize < 1 {
		return errors.ConfigError("burst size must be positive")
	}
	return nil
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// LocalLimiter keeps a token bucket per key in process memory
type LocalLimiter struct {
	mu          sync.Mutex
	config      Config
	limiters    map[string]*limiterEntry
	lastCleanup time.Time
}

// NewLocalLimiter creates a per-key token bucket limiter
func NewLocalLimiter(config Config) (*LocalLimiter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	defaults := DefaultConfig()
	if config.MaxKeys <= 0 {
		config.MaxKeys = defaults.MaxKeys
	}
	if config.CleanupPeriod <= 0 {
		config.CleanupPeriod = defaults.CleanupPeriod
	}

	return &LocalLimiter{
		config:      config,
		limiters:    make(map[string]*limiterEntry),
		lastCleanup: time.Now(),
	}, nil
}

// Allow implements Limiter
func (l *LocalLimiter) Allow(_ context.Context, key string) (bool, error) {
	return l.limiterFor(key).Allow(), nil
}

// Keys returns the number of tracked keys
func (l *LocalLimiter) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

func (l *LocalLimiter) limiterFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastCleanup) > l.config.CleanupPeriod {
		l.cleanup(now)
	}

	entry, ok := l.limiters[key]
	if !ok {
		entry = &limiterEntry{
			limiter:  rate.NewLimiter(rate.Limit(l.config.RequestsPerSecond), l.config.BurstSize),
			lastUsed: now,
		}
		l.limiters[key] = entry
		if len(l.limiters) > l.config.MaxKeys {
			l.cleanup(now)
		}
	}
	entry.lastUsed = now
	return entry.limiter
}

func (l *LocalLimiter) cleanup(now time.Time) {
	cutoff := now.Add(-l.config.CleanupPeriod)
	for key, entry := range l.limiters {
		if entry.lastUsed.Before(cutoff) {
			delete(l.limiters, key)
		}
	}
	l.lastCleanup = now
}

// WindowCounter is the Redis operation a RedisLimiter needs
type WindowCounter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error)
}

// RedisLimiter shares a sliding window counter per key through Redis
type RedisLimiter struct {
	counter WindowCounter
	limit   int
	window  time.Duration
}

// NewRedisLimiter allows limit requests per window for every key
func NewRedisLimiter(counter WindowCounter, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{counter: counter, limit: limit, window: window}
}

// Allow implements Limiter
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	allowed, _, err := l.counter.CheckRateLimit(ctx, "rate_limit:"+key, l.limit, l.window)
	if err != nil {
		return false, errors.InternalError("failed to check rate limit", err)
	}
	return allowed, nil
}

// Middleware rejects requests over the limit with 429. Requests are let
// through when keyFunc yields no key or the limiter fails.
func Middleware(limiter Limiter, keyFunc func(*http.Request) string, logger logging.Logger) func(http.Handler) http.Handler {
	logger = logging.OrDefault(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Error("Rate limit check failed", err, logging.Field{Key: "key", Value: key})
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// IPBasedKey keys requests by client address, preferring proxy headers
func IPBasedKey(r *http.Request) string {
	ip := r.Header.Get("X-Forwarded-For")
	if ip != "" {
		ip = strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if ip == "" {
		ip = r.Header.Get("X-Real-IP")
	}
	if ip == "" {
		ip = r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
	}
	return fmt.Sprintf("ip:%s", ip)
}
