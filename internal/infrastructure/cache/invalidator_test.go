package cache

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/microgate/platform/internal/infrastructure/db/memory"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not reached within deadline")
}

func TestInvalidator_DeletesKeys(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := memory.NewCache()
	store.SetWithExpiry(ctx, "token:alice", "tok", time.Hour)
	store.SetWithExpiry(ctx, "user:7", "alice", time.Hour)

	inv := NewInvalidator(store, zerolog.Nop())
	inv.Start(ctx)

	inv.Invalidate("token:alice", "user:7")

	waitFor(t, func() bool { return store.Len() == 0 })
}

func TestInvalidator_DeletesByPrefix(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := memory.NewCache()
	store.SetWithExpiry(ctx, "admin:users:1", "a", time.Hour)
	store.SetWithExpiry(ctx, "admin:users:2", "b", time.Hour)
	store.SetWithExpiry(ctx, "token:alice", "tok", time.Hour)

	inv := NewInvalidator(store, zerolog.Nop())
	inv.Start(ctx)

	inv.InvalidatePrefix("admin:users:")

	waitFor(t, func() bool { return store.Len() == 1 })

	if _, ok, _ := store.Get(ctx, "token:alice"); !ok {
		t.Fatalf("unrelated key was deleted")
	}
}

func TestInvalidator_EmptyInvalidateIsNoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := memory.NewCache()
	store.SetWithExpiry(ctx, "token:alice", "tok", time.Hour)

	inv := NewInvalidator(store, zerolog.Nop())
	inv.Start(ctx)

	inv.Invalidate()

	time.Sleep(50 * time.Millisecond)
	if store.Len() != 1 {
		t.Fatalf("Len = %d, want 1", store.Len())
	}
}
