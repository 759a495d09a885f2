package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"match-service/internal/client"
	"match-service/internal/model"
)

func newTestClient(t *testing.T) *client.RedisClient {
	t.Helper()
	srv := miniredis.RunT(t)
	rc := client.NewRedisClientForAddr(srv.Addr())
	t.Cleanup(func() { rc.Close() })
	return rc
}

func TestWaitingPoolFIFO(t *testing.T) {
	t.Parallel()
	pool := NewWaitingPool(newTestClient(t))
	ctx := context.Background()

	base := time.Now()
	for i, id := range []int64{10, 20, 30} {
		if err := pool.enqueueAt(ctx, id, model.AttributeFemale, "alias", base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("enqueue %d: %v", id, err)
		}
	}

	for _, want := range []int64{10, 20, 30} {
		entry, ok, err := pool.ClaimOldest(ctx, model.AttributeFemale)
		if err != nil {
			t.Fatalf("claim: %v", err)
		}
		if !ok {
			t.Fatalf("claim: pool unexpectedly empty, want %d", want)
		}
		if entry.UserID != want {
			t.Errorf("claimed %d, want %d", entry.UserID, want)
		}
	}

	if _, ok, err := pool.ClaimOldest(ctx, model.AttributeFemale); err != nil || ok {
		t.Errorf("claim on empty pool: ok=%v err=%v, want miss", ok, err)
	}
}

func TestWaitingPoolClaimReturnsEntryFields(t *testing.T) {
	t.Parallel()
	pool := NewWaitingPool(newTestClient(t))
	ctx := context.Background()

	at := time.Now().Truncate(time.Microsecond)
	if err := pool.enqueueAt(ctx, 42, model.AttributeMale, "AnonGuy123", at); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	entry, ok, err := pool.ClaimOldest(ctx, model.AttributeMale)
	if err != nil || !ok {
		t.Fatalf("claim: ok=%v err=%v", ok, err)
	}
	if entry.UserID != 42 || entry.Attribute != model.AttributeMale || entry.Alias != "AnonGuy123" {
		t.Errorf("unexpected entry %+v", entry)
	}
	if !entry.EnqueuedAt.Equal(at) {
		t.Errorf("enqueued at %v, want %v", entry.EnqueuedAt, at)
	}
}

func TestWaitingPoolEnqueueUpsert(t *testing.T) {
	t.Parallel()
	pool := NewWaitingPool(newTestClient(t))
	ctx := context.Background()

	base := time.Now()
	if err := pool.enqueueAt(ctx, 1, model.AttributeMale, "old", base); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := pool.enqueueAt(ctx, 2, model.AttributeMale, "second", base.Add(time.Second)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	// Re-declaring moves user 1 behind user 2 and may switch attribute.
	if err := pool.enqueueAt(ctx, 1, model.AttributeMale, "new", base.Add(2*time.Second)); err != nil {
		t.Fatalf("re-enqueue: %v", err)
	}

	if n, err := pool.Len(ctx, model.AttributeMale); err != nil || n != 2 {
		t.Fatalf("len = %d, %v; want 2", n, err)
	}

	entry, _, err := pool.ClaimOldest(ctx, model.AttributeMale)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if entry.UserID != 2 {
		t.Errorf("oldest after upsert is %d, want 2", entry.UserID)
	}
	entry, _, err = pool.ClaimOldest(ctx, model.AttributeMale)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if entry.Alias != "new" {
		t.Errorf("alias after upsert is %q, want %q", entry.Alias, "new")
	}
}

func TestWaitingPoolEnqueueSwitchesAttribute(t *testing.T) {
	t.Parallel()
	pool := NewWaitingPool(newTestClient(t))
	ctx := context.Background()

	if err := pool.Enqueue(ctx, 7, model.AttributeMale, "a"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := pool.Enqueue(ctx, 7, model.AttributeFemale, "b"); err != nil {
		t.Fatalf("re-enqueue: %v", err)
	}

	if n, _ := pool.Len(ctx, model.AttributeMale); n != 0 {
		t.Errorf("male pool has %d entries, want 0", n)
	}
	if n, _ := pool.Len(ctx, model.AttributeFemale); n != 1 {
		t.Errorf("female pool has %d entries, want 1", n)
	}
}

func TestWaitingPoolConcurrentClaimExactlyOnce(t *testing.T) {
	t.Parallel()
	pool := NewWaitingPool(newTestClient(t))
	ctx := context.Background()

	const waiting = 5
	const claimers = 20

	base := time.Now()
	for i := int64(0); i < waiting; i++ {
		if err := pool.enqueueAt(ctx, 100+i, model.AttributeFemale, "alias", base.Add(time.Duration(i)*time.Millisecond)); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	var mu sync.Mutex
	claimed := make(map[int64]int)
	misses := 0

	var wg sync.WaitGroup
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entry, ok, err := pool.ClaimOldest(ctx, model.AttributeFemale)
			if err != nil {
				t.Errorf("claim: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if ok {
				claimed[entry.UserID]++
			} else {
				misses++
			}
		}()
	}
	wg.Wait()

	if len(claimed) != waiting {
		t.Errorf("claimed %d distinct entries, want %d", len(claimed), waiting)
	}
	for id, n := range claimed {
		if n != 1 {
			t.Errorf("entry %d claimed %d times", id, n)
		}
	}
	if misses != claimers-waiting {
		t.Errorf("%d misses, want %d", misses, claimers-waiting)
	}
}

func TestWaitingPoolRestorePreservesPosition(t *testing.T) {
	t.Parallel()
	pool := NewWaitingPool(newTestClient(t))
	ctx := context.Background()

	base := time.Now()
	if err := pool.enqueueAt(ctx, 1, model.AttributeMale, "first", base); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := pool.enqueueAt(ctx, 2, model.AttributeMale, "second", base.Add(time.Second)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	entry, ok, err := pool.ClaimOldest(ctx, model.AttributeMale)
	if err != nil || !ok || entry.UserID != 1 {
		t.Fatalf("claim: entry=%+v ok=%v err=%v", entry, ok, err)
	}

	// Pairing failed; the claimed user goes back to the head of the queue.
	if err := pool.Restore(ctx, entry); err != nil {
		t.Fatalf("restore: %v", err)
	}

	entry, ok, err = pool.ClaimOldest(ctx, model.AttributeMale)
	if err != nil || !ok {
		t.Fatalf("claim after restore: ok=%v err=%v", ok, err)
	}
	if entry.UserID != 1 {
		t.Errorf("oldest after restore is %d, want 1", entry.UserID)
	}
}

func TestWaitingPoolWithdraw(t *testing.T) {
	t.Parallel()
	pool := NewWaitingPool(newTestClient(t))
	ctx := context.Background()

	if err := pool.Enqueue(ctx, 9, model.AttributeFemale, "alias"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := pool.Withdraw(ctx, 9); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if n, _ := pool.Len(ctx, model.AttributeFemale); n != 0 {
		t.Errorf("pool has %d entries after withdraw, want 0", n)
	}

	// Absent user is a no-op.
	if err := pool.Withdraw(ctx, 9); err != nil {
		t.Errorf("second withdraw: %v", err)
	}
}
