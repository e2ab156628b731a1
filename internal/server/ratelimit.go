package server

import (
	"sync"
	"time"
)

const (
	DefaultRateLimit  = 10
	DefaultRateWindow = 60 * time.Second
)

// RateLimiter makes a sliding-window accept/reject decision per user.
// State is keyed by user id and lives for the process lifetime, so a
// reconnecting user does not reset their quota.
type RateLimiter struct {
	mu         sync.Mutex
	limit      int
	window     time.Duration
	now        func() time.Time
	timestamps map[string][]time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	if window <= 0 {
		window = DefaultRateWindow
	}

	return &RateLimiter{
		limit:      limit,
		window:     window,
		now:        time.Now,
		timestamps: make(map[string][]time.Time),
	}
}

// Allow drops timestamps that have left the window, then accepts and
// records the event if the user is under the limit. Rejected events are
// not recorded.
func (rl *RateLimiter) Allow(userId string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)

	kept := rl.timestamps[userId][:0]
	for _, ts := range rl.timestamps[userId] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= rl.limit {
		rl.timestamps[userId] = kept
		return false
	}

	rl.timestamps[userId] = append(kept, now)
	return true
}
