package session

import (
	"context"
	"testing"
	"time"
)

func TestManagerCreateGetEnd(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Create("sess-1", "balanced", "en-IN", "")
	if s.ID != "sess-1" {
		t.Fatalf("session ID = %q, want sess-1", s.ID)
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.OptimizationTier != "balanced" || got.TargetLanguage != "en-IN" || got.Status != StatusActive {
		t.Fatalf("unexpected session state: %+v", got)
	}

	ended, err := m.End(s.ID)
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if ended.Status != StatusEnded {
		t.Fatalf("ended status = %q, want %q", ended.Status, StatusEnded)
	}
}

func TestManagerStartTurnReturnsPrevious(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Create("sess-2", "balanced", "en-IN", "")

	prev, err := m.StartTurn(s.ID, "turn-1")
	if err != nil {
		t.Fatalf("StartTurn() error = %v", err)
	}
	if prev != "" {
		t.Fatalf("first StartTurn previous = %q, want empty", prev)
	}

	prev, err = m.StartTurn(s.ID, "turn-2")
	if err != nil {
		t.Fatalf("StartTurn() error = %v", err)
	}
	if prev != "turn-1" {
		t.Fatalf("second StartTurn previous = %q, want turn-1", prev)
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ActiveTurnID != "turn-2" {
		t.Fatalf("ActiveTurnID = %q, want turn-2", got.ActiveTurnID)
	}
}

func TestManagerEndTurnClearsActiveAndRecordsLast(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Create("sess-3", "balanced", "en-IN", "")
	if _, err := m.StartTurn(s.ID, "turn-1"); err != nil {
		t.Fatalf("StartTurn() error = %v", err)
	}
	if err := m.EndTurn(s.ID, "turn-1"); err != nil {
		t.Fatalf("EndTurn() error = %v", err)
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ActiveTurnID != "" {
		t.Fatalf("ActiveTurnID = %q, want empty", got.ActiveTurnID)
	}
	if got.LastTurnID != "turn-1" {
		t.Fatalf("LastTurnID = %q, want turn-1", got.LastTurnID)
	}
}

func TestManagerJanitorExpiresInactive(t *testing.T) {
	m := NewManager(30 * time.Millisecond)
	s := m.Create("sess-4", "balanced", "en-IN", "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartJanitor(ctx, 10*time.Millisecond)

	time.Sleep(90 * time.Millisecond)
	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != StatusEnded {
		t.Fatalf("Status = %q, want %q", got.Status, StatusEnded)
	}
}

func TestManagerExpireInvokesHook(t *testing.T) {
	m := NewManager(20 * time.Millisecond)
	hookCalls := 0
	m.SetExpireHook(func(*Session) { hookCalls++ })
	m.Create("sess-5", "balanced", "en-IN", "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartJanitor(ctx, 10*time.Millisecond)
	time.Sleep(80 * time.Millisecond)

	if hookCalls == 0 {
		t.Fatalf("expire hook never invoked")
	}
}
