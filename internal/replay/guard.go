// Package replay rejects authentic messages that are delivered more than
// once. A verified webhook or signed request is claimed by its signature for
// the timestamp grace window; a second claim of the same signature fails.
package replay

import (
	"context"
	"sync"
	"time"

	"channels-core/internal/circuitbreaker"
	"channels-core/internal/common/errors"
	"channels-core/internal/redis"
)

// KeyPrefix namespaces claims in Redis
const KeyPrefix = "channels-core:replay:"

// Guard claims message ids
type Guard interface {
	// Claim reports true the first time id is claimed within ttl
	Claim(ctx context.Context, id string, ttl time.Duration) (bool, error)
}

// RedisGuard shares claims between processes through Redis
type RedisGuard struct {
	client *redis.Client
}

// NewRedisGuard creates a guard backed by client
func NewRedisGuard(client *redis.Client) *RedisGuard {
	return &RedisGuard{client: client}
}

// Claim implements Guard
func (g *RedisGuard) Claim(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	if id == "" {
		return false, errors.ValidationError("replay id is required")
	}
	claimed, err := g.client.SetOnce(ctx, KeyPrefix+id, 1, ttl)
	if err != nil {
		return false, errors.InternalError("failed to claim message", err)
	}
	return claimed, nil
}

// BreakerGuard fails fast while the wrapped guard's backend is down
type BreakerGuard struct {
	next    Guard
	breaker *circuitbreaker.Breaker
}

// NewBreakerGuard wraps next with breaker
func NewBreakerGuard(next Guard, breaker *circuitbreaker.Breaker) *BreakerGuard {
	return &BreakerGuard{next: next, breaker: breaker}
}

// Claim implements Guard
func (g *BreakerGuard) Claim(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	var claimed bool
	err := g.breaker.Execute(func() error {
		var err error
		claimed, err = g.next.Claim(ctx, id, ttl)
		return err
	})
	if err != nil {
		return false, err
	}
	return claimed, nil
}

// DefaultSweepInterval is how often a MemoryGuard drops expired claims
const DefaultSweepInterval = time.Minute

// MemoryGuard keeps claims in process memory. Expired claims are swept
// at most once per sweep interval.
type MemoryGuard struct {
	mu            sync.Mutex
	claims        map[string]time.Time
	now           func() time.Time
	sweepInterval time.Duration
	lastSweep     time.Time
}

// NewMemoryGuard creates an empty in-memory guard
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{
		claims:        make(map[string]time.Time),
		now:           time.Now,
		sweepInterval: DefaultSweepInterval,
	}
}

// Claim implements Guard
func (g *MemoryGuard) Claim(_ context.Context, id string, ttl time.Duration) (bool, error) {
	if id == "" {
		return false, errors.ValidationError("replay id is required")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if now.Sub(g.lastSweep) >= g.sweepInterval {
		g.sweep(now)
	}

	if expires, taken := g.claims[id]; taken && now.Before(expires) {
		return false, nil
	}
	g.claims[id] = now.Add(ttl)
	return true, nil
}

func (g *MemoryGuard) sweep(now time.Time) {
	for k, expires := range g.claims {
		if !now.Before(expires) {
			delete(g.claims, k)
		}
	}
	g.lastSweep = now
}

// Len returns the number of stored claims, including expired ones not yet swept
func (g *MemoryGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.claims)
}
