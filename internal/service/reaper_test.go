package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"match-service/internal/client"
	"match-service/internal/model"
	redisrepo "match-service/internal/repository/redis"
)

type fakeArchive struct {
	mu   sync.Mutex
	ends []string
}

func (a *fakeArchive) RecordPairing(context.Context, int64, int64, time.Time) error { return nil }

func (a *fakeArchive) RecordEnd(_ context.Context, _, _ int64, reason string, _ time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ends = append(a.ends, reason)
	return nil
}

func (a *fakeArchive) RecentPairings(context.Context, int) ([]*model.PairingRecord, error) {
	return nil, nil
}

func TestReaperSweepReclaimsIdleSessions(t *testing.T) {
	t.Parallel()
	srv := miniredis.RunT(t)
	rc := client.NewRedisClientForAddr(srv.Addr())
	t.Cleanup(func() { rc.Close() })
	ctx := context.Background()

	sessions := redisrepo.NewSessionStore(rc)
	if err := sessions.CreatePair(ctx, 1, 2); err != nil {
		t.Fatalf("create pair: %v", err)
	}
	if err := sessions.CreatePair(ctx, 3, 4); err != nil {
		t.Fatalf("create pair: %v", err)
	}

	// Pair (1,2) has been idle for ten minutes.
	stale := float64(time.Now().Add(-10 * time.Minute).Unix())
	for _, id := range []string{"1", "2"} {
		if err := rc.Client.ZAdd(ctx, "session_activity", goredis.Z{Score: stale, Member: id}).Err(); err != nil {
			t.Fatalf("age session: %v", err)
		}
	}

	events := &fakePublisher{}
	archive := &fakeArchive{}
	reaper := NewReaper(sessions, events, archive, time.Minute, 5*time.Minute, zap.NewNop())

	reaper.Sweep(ctx)

	if inSession, _ := sessions.IsInSession(ctx, 1); inSession {
		t.Error("idle session survived the sweep")
	}
	if inSession, _ := sessions.IsInSession(ctx, 3); !inSession {
		t.Error("active session reclaimed by the sweep")
	}

	expiredEvents := events.ofType(model.EventSessionExpired)
	if len(expiredEvents) != 1 {
		t.Errorf("%d session_expired events, want 1", len(expiredEvents))
	}

	archive.mu.Lock()
	defer archive.mu.Unlock()
	if len(archive.ends) != 1 || archive.ends[0] != "expired" {
		t.Errorf("archive recorded %v, want one %q teardown", archive.ends, "expired")
	}
}

func TestReaperSweepWithNothingIdle(t *testing.T) {
	t.Parallel()
	srv := miniredis.RunT(t)
	rc := client.NewRedisClientForAddr(srv.Addr())
	t.Cleanup(func() { rc.Close() })
	ctx := context.Background()

	sessions := redisrepo.NewSessionStore(rc)
	if err := sessions.CreatePair(ctx, 1, 2); err != nil {
		t.Fatalf("create pair: %v", err)
	}

	events := &fakePublisher{}
	reaper := NewReaper(sessions, events, nil, time.Minute, 5*time.Minute, zap.NewNop())
	reaper.Sweep(ctx)

	if inSession, _ := sessions.IsInSession(ctx, 1); !inSession {
		t.Error("fresh session reclaimed")
	}
	if len(events.ofType(model.EventSessionExpired)) != 0 {
		t.Error("expiry event published for a fresh session")
	}
}

func TestReaperRunStopsOnCancel(t *testing.T) {
	t.Parallel()
	srv := miniredis.RunT(t)
	rc := client.NewRedisClientForAddr(srv.Addr())
	t.Cleanup(func() { rc.Close() })

	sessions := redisrepo.NewSessionStore(rc)
	reaper := NewReaper(sessions, nil, nil, 10*time.Millisecond, 5*time.Minute, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- reaper.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("run returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop on cancel")
	}
}
