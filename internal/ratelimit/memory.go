package ratelimit

import (
	"context"
	"sync"
	"time"
)

type counter struct {
	start time.Time
	count int
}

// MemoryRateLimiter is a fixed window limiter local to one process.
type MemoryRateLimiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	counters  map[string]*counter
	lastSweep time.Time
	now       func() time.Time
}

func NewMemory(limit int, window time.Duration) (*MemoryRateLimiter, error) {
	if err := validate(limit, window); err != nil {
		return nil, err
	}
	return &MemoryRateLimiter{
		limit:    limit,
		window:   window,
		counters: make(map[string]*counter),
		now:      time.Now,
	}, nil
}

func (m *MemoryRateLimiter) Allow(_ context.Context, key string) (*RateLimitInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)

	c, ok := m.counters[key]
	if !ok || now.Sub(c.start) >= m.window {
		c = &counter{start: now}
		m.counters[key] = c
	}

	allowed := c.count < m.limit
	if allowed {
		c.count++
	}

	return &RateLimitInfo{
		Limit:     m.limit,
		Remaining: max(m.limit-c.count, 0),
		ResetAt:   c.start.Add(m.window),
		Allowed:   allowed,
	}, nil
}

// sweep drops expired windows at most once per window.
func (m *MemoryRateLimiter) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < m.window {
		return
	}
	for key, c := range m.counters {
		if now.Sub(c.start) >= m.window {
			delete(m.counters, key)
		}
	}
	m.lastSweep = now
}
