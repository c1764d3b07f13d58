package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const sweepEvery = 256

// memoryLimiter keeps one token bucket per key: limit tokens refilled evenly over window
type memoryLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	calls    int
	now      func() time.Time
}

// NewMemoryLimiter creates an in-process limiter allowing limit events per window and key
func NewMemoryLimiter(limit int, window time.Duration) Limiter {
	return newMemoryLimiter(limit, window, time.Now)
}

func newMemoryLimiter(limit int, window time.Duration, now func() time.Time) *memoryLimiter {
	return &memoryLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(window / time.Duration(limit)),
		burst:    limit,
		now:      now,
	}
}

func (m *memoryLimiter) Allow(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	limiter, ok := m.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(m.limit, m.burst)
		m.limiters[key] = limiter
	}
	allowed := limiter.AllowN(now, 1)

	m.calls++
	if m.calls%sweepEvery == 0 {
		m.sweep(now)
	}
	return allowed, nil
}

// sweep drops buckets that have refilled completely; they carry no state
func (m *memoryLimiter) sweep(now time.Time) {
	for key, limiter := range m.limiters {
		if limiter.TokensAt(now) >= float64(m.burst) {
			delete(m.limiters, key)
		}
	}
}
