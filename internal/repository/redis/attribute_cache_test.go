package redis

import (
	"context"
	"testing"

	"match-service/internal/model"
)

func TestAttributeCacheRoundTrip(t *testing.T) {
	t.Parallel()
	rc := newTestClient(t)
	cache := NewAttributeCache(rc)
	ctx := context.Background()

	if _, ok, err := cache.Get(ctx, 1); err != nil || ok {
		t.Fatalf("get before set: ok=%v err=%v, want miss", ok, err)
	}

	if err := cache.Set(ctx, 1, model.AttributeFemale); err != nil {
		t.Fatalf("set: %v", err)
	}
	attr, ok, err := cache.Get(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if attr != model.AttributeFemale {
		t.Errorf("attr = %q, want %q", attr, model.AttributeFemale)
	}

	if err := cache.Clear(ctx, 1); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := cache.Get(ctx, 1); ok {
		t.Error("attribute survived clear")
	}

	// Clearing an absent record is a no-op.
	if err := cache.Clear(ctx, 1); err != nil {
		t.Errorf("second clear: %v", err)
	}
}

func TestAttributeCacheRejectsCorruptValue(t *testing.T) {
	t.Parallel()
	rc := newTestClient(t)
	cache := NewAttributeCache(rc)
	ctx := context.Background()

	if err := rc.Set(ctx, attributeKey(7), "giraffe", 0); err != nil {
		t.Fatalf("seed corrupt value: %v", err)
	}
	if _, ok, err := cache.Get(ctx, 7); err != nil || ok {
		t.Errorf("corrupt value surfaced: ok=%v err=%v, want miss", ok, err)
	}
}
