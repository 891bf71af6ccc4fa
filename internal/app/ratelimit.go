package app

import (
	"sync"
	"time"

	"github.com/dkeye/tempvoice/internal/clock"
	"github.com/dkeye/tempvoice/internal/domain"
)

const (
	DefaultCreateLimit    = 3
	DefaultCreateInterval = 30 * time.Second
)

type limiterKey struct {
	guild domain.GuildID
	user  domain.UserID
}

// CreateRateLimiter bounds how many rooms one member can trigger per
// sliding window, so hub join spam cannot churn channels.
type CreateRateLimiter struct {
	mu       sync.Mutex
	clock    clock.Clock
	history  map[limiterKey][]time.Time
	limit    int
	interval time.Duration
}

func NewCreateRateLimiter(c clock.Clock, limit int, interval time.Duration) *CreateRateLimiter {
	if limit <= 0 {
		limit = DefaultCreateLimit
	}
	if interval <= 0 {
		interval = DefaultCreateInterval
	}
	return &CreateRateLimiter{
		clock:    c,
		history:  make(map[limiterKey][]time.Time),
		limit:    limit,
		interval: interval,
	}
}

func (rl *CreateRateLimiter) Allow(guild domain.GuildID, user domain.UserID) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	windowStart := now.Add(-rl.interval)
	key := limiterKey{guild: guild, user: user}

	attempts := rl.history[key]
	fresh := make([]time.Time, 0, len(attempts)+1)
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}
	if len(fresh) >= rl.limit {
		rl.history[key] = fresh
		return false
	}
	rl.history[key] = append(fresh, now)
	return true
}

// Prune drops members whose attempts all left the window.
func (rl *CreateRateLimiter) Prune() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	windowStart := rl.clock.Now().Add(-rl.interval)
	n := 0
	for key, attempts := range rl.history {
		if len(attempts) == 0 || !attempts[len(attempts)-1].After(windowStart) {
			delete(rl.history, key)
			n++
		}
	}
	return n
}
