package turn

import (
	"context"
	"testing"
)

func TestFabricCancelRunsCleanupsOnce(t *testing.T) {
	f := NewFabric()
	tok := f.StartTurn(context.Background(), "sess-1", "turn-1")

	calls := 0
	tok.RegisterCleanup(func() { calls++ })

	f.Cancel("sess-1", "turn-1", ReasonUserBargeIn)
	f.Cancel("sess-1", "turn-1", ReasonReplaced) // second cancel must be a no-op

	if calls != 1 {
		t.Fatalf("cleanup called %d times, want 1", calls)
	}
	if !tok.IsCancelled() {
		t.Fatalf("token not marked cancelled")
	}
	if tok.Reason() != ReasonUserBargeIn {
		t.Fatalf("reason = %q, want %q (first cancel wins)", tok.Reason(), ReasonUserBargeIn)
	}
	if tok.Context().Err() == nil {
		t.Fatalf("token context was not cancelled")
	}
}

func TestFabricFinishTurnRunsCleanupsWhenNotCancelled(t *testing.T) {
	f := NewFabric()
	tok := f.StartTurn(context.Background(), "sess-2", "turn-1")

	calls := 0
	tok.RegisterCleanup(func() { calls++ })

	f.FinishTurn("sess-2", "turn-1")

	if calls != 1 {
		t.Fatalf("cleanup called %d times on finish, want 1", calls)
	}
	if _, ok := f.ActiveTurnID("sess-2"); ok {
		t.Fatalf("fabric still holds token after FinishTurn")
	}
}

func TestRegisterCleanupAfterFinishRunsImmediately(t *testing.T) {
	f := NewFabric()
	tok := f.StartTurn(context.Background(), "sess-3", "turn-1")
	f.FinishTurn("sess-3", "turn-1")

	calls := 0
	tok.RegisterCleanup(func() { calls++ })
	if calls != 1 {
		t.Fatalf("late cleanup registration did not run immediately, calls=%d", calls)
	}
}

func TestActiveTurnIDDetectsOverlap(t *testing.T) {
	f := NewFabric()
	f.StartTurn(context.Background(), "sess-4", "turn-a")

	id, ok := f.ActiveTurnID("sess-4")
	if !ok || id != "turn-a" {
		t.Fatalf("ActiveTurnID = (%q, %v), want (turn-a, true)", id, ok)
	}

	f.Cancel("sess-4", "turn-a", ReasonReplaced)
	f.FinishTurn("sess-4", "turn-a")
	if _, ok := f.ActiveTurnID("sess-4"); ok {
		t.Fatalf("ActiveTurnID still reports a turn after cancel+finish")
	}
}
