package service

import (
	"sync"

	"golang.org/x/time/rate"
)

// PlayerLimiter hands out one token bucket per player. qps <= 0 means unlimited.
type PlayerLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func NewPlayerLimiter(qps float64, burst int) *PlayerLimiter {
	limit := rate.Limit(qps)
	if qps <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &PlayerLimiter{limiters: make(map[string]*rate.Limiter), limit: limit, burst: burst}
}

// Limiter returns the player's bucket, creating it on first use.
func (l *PlayerLimiter) Limiter(playerID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[playerID]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[playerID] = lim
	}
	return lim
}

func (l *PlayerLimiter) Allow(playerID string) bool {
	return l.Limiter(playerID).Allow()
}

// Forget drops a player's bucket, e.g. when they leave.
func (l *PlayerLimiter) Forget(playerID string) {
	l.mu.Lock()
	delete(l.limiters, playerID)
	l.mu.Unlock()
}
