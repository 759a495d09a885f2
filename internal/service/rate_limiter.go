package service

import (
	"sync"
	"time"
)

// RateLimiter throttles relay actions with a per-user sliding window. State
// is process-local and never persisted; a restart clears every window. One
// instance is constructed at startup and shared by all action handlers.
type RateLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	entries map[int64][]time.Time
	now     func() time.Time
	swept   time.Time
}

func NewRateLimiter(window time.Duration, max int) *RateLimiter {
	if window <= 0 {
		window = time.Second
	}
	if max <= 0 {
		max = 1
	}
	return &RateLimiter{
		window:  window,
		max:     max,
		entries: make(map[int64][]time.Time),
		now:     time.Now,
	}
}

// Allow records the action and returns true unless the user already hit the
// per-window limit. Callers must reject the action on false.
func (l *RateLimiter) Allow(userID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)
	l.sweepLocked(now, cutoff)

	kept := l.entries[userID][:0]
	for _, t := range l.entries[userID] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= l.max {
		l.entries[userID] = kept
		return false
	}

	l.entries[userID] = append(kept, now)
	return true
}

// sweepLocked drops users whose entire window has expired, at most once per
// window, so users who go idle without an explicit stop don't stay keyed
// forever. Caller holds the mutex.
func (l *RateLimiter) sweepLocked(now, cutoff time.Time) {
	if now.Sub(l.swept) < l.window {
		return
	}
	l.swept = now
	for id, stamps := range l.entries {
		live := false
		for _, t := range stamps {
			if t.After(cutoff) {
				live = true
				break
			}
		}
		if !live {
			delete(l.entries, id)
		}
	}
}

// Forget drops a user's window, bounding map growth when users go idle.
func (l *RateLimiter) Forget(userID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, userID)
}
