package ratelimit

import (
	"context"
	"sync"
	"time"
)

type counter struct {
	windowStart time.Time
	count       int
	window      time.Duration
}

// MemoryLimiter keeps counters in process memory. Suitable for a single
// instance and for tests.
type MemoryLimiter struct {
	mu       sync.Mutex
	counters map[string]*counter
	now      func() time.Time
}

// NewMemoryLimiter returns a MemoryLimiter. now may be nil.
func NewMemoryLimiter(now func() time.Time) *MemoryLimiter {
	if now == nil {
		now = time.Now
	}
	return &MemoryLimiter{counters: make(map[string]*counter), now: now}
}

func (m *MemoryLimiter) CheckAndConsume(_ context.Context, actorID, actionKey string, limit int, window time.Duration) (Decision, error) {
	if err := validate(actorID, actionKey, limit, window); err != nil {
		return Decision{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	k := key(actorID, actionKey)
	c, ok := m.counters[k]
	if !ok || now.Sub(c.windowStart) >= window {
		c = &counter{windowStart: now, window: window}
		m.counters[k] = c
	}

	if c.count < limit {
		c.count++
		return Decision{Allowed: true, Remaining: limit - c.count}, nil
	}
	return Decision{RetryAfter: c.windowStart.Add(window).Sub(now)}, nil
}

// Sweep drops counters whose window has closed and returns how many were removed.
func (m *MemoryLimiter) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for k, c := range m.counters {
		if now.Sub(c.windowStart) >= c.window {
			delete(m.counters, k)
			n++
		}
	}
	return n
}
