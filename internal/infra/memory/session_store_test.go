package memory

import (
	"context"
	"testing"
)

func TestSessionStoreReturnsSameSession(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	first, err := store.GetOrCreate(ctx, "u1")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if _, ok := store.Get(ctx, "u1"); !ok {
		t.Fatalf("expected session present")
	}

	second, err := store.GetOrCreate(ctx, "u1")
	if err != nil {
		t.Fatalf("get or create again: %v", err)
	}
	if first != second {
		t.Fatalf("expected the same live session for a user")
	}

	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("save should be a no-op, got %v", err)
	}
	if _, ok := store.Get(ctx, "other"); ok {
		t.Fatalf("unexpected session for unknown user")
	}
}
