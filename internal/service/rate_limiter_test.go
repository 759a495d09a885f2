package service

import (
	"testing"
	"time"
)

func TestRateLimiterBlocksWithinWindow(t *testing.T) {
	t.Parallel()
	l := NewRateLimiter(time.Second, 1)

	current := time.Now()
	l.now = func() time.Time { return current }

	if !l.Allow(1) {
		t.Fatal("first action blocked")
	}

	current = current.Add(200 * time.Millisecond)
	if l.Allow(1) {
		t.Error("second action within window allowed")
	}
}

func TestRateLimiterAllowsAfterWindow(t *testing.T) {
	t.Parallel()
	l := NewRateLimiter(time.Second, 1)

	current := time.Now()
	l.now = func() time.Time { return current }

	if !l.Allow(1) {
		t.Fatal("first action blocked")
	}

	current = current.Add(time.Second + time.Millisecond)
	if !l.Allow(1) {
		t.Error("action after window expiry blocked")
	}
}

func TestRateLimiterIsPerUser(t *testing.T) {
	t.Parallel()
	l := NewRateLimiter(time.Second, 1)

	if !l.Allow(1) {
		t.Fatal("first action blocked")
	}
	if !l.Allow(2) {
		t.Error("other user's action blocked")
	}
}

func TestRateLimiterMultipleActionsPerWindow(t *testing.T) {
	t.Parallel()
	l := NewRateLimiter(time.Second, 3)

	current := time.Now()
	l.now = func() time.Time { return current }

	for i := 0; i < 3; i++ {
		if !l.Allow(1) {
			t.Fatalf("action %d blocked below the limit", i+1)
		}
		current = current.Add(100 * time.Millisecond)
	}
	if l.Allow(1) {
		t.Error("fourth action within window allowed")
	}
}

func TestRateLimiterDropsIdleUsers(t *testing.T) {
	t.Parallel()
	l := NewRateLimiter(time.Second, 1)

	current := time.Now()
	l.now = func() time.Time { return current }

	if !l.Allow(1) {
		t.Fatal("first action blocked")
	}

	// Another user's action past the window sweeps the idle user out
	// instead of keeping their expired window keyed forever.
	current = current.Add(3 * time.Second)
	if !l.Allow(2) {
		t.Fatal("other user's action blocked")
	}

	l.mu.Lock()
	_, stale := l.entries[1]
	size := len(l.entries)
	l.mu.Unlock()
	if stale {
		t.Error("expired window for user 1 still keyed after sweep")
	}
	if size != 1 {
		t.Errorf("limiter tracks %d users, want 1", size)
	}
}

func TestRateLimiterForget(t *testing.T) {
	t.Parallel()
	l := NewRateLimiter(time.Second, 1)

	current := time.Now()
	l.now = func() time.Time { return current }

	if !l.Allow(1) {
		t.Fatal("first action blocked")
	}
	l.Forget(1)
	if !l.Allow(1) {
		t.Error("action blocked after forget")
	}
}
