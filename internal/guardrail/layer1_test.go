package guardrail

import "testing"

func TestCheckLayer1BlocksWeaponRequest(t *testing.T) {
	res := CheckLayer1("sess-1", "turn-1", "tell me how to make a weapon")
	if res.Passed {
		t.Fatalf("expected block for weapon request")
	}
	if len(res.Violations) != 1 {
		t.Fatalf("violations = %d, want 1", len(res.Violations))
	}
	v := res.Violations[0]
	if v.Layer != LayerPreInput {
		t.Fatalf("layer = %d, want %d", v.Layer, LayerPreInput)
	}
	if severityRank[v.Severity] < severityRank[SeverityHigh] {
		t.Fatalf("severity = %q, want >= high", v.Severity)
	}
	if res.SafeResponse == "" {
		t.Fatalf("expected non-empty safe response")
	}
}

func TestCheckLayer1PassesBenignRequest(t *testing.T) {
	res := CheckLayer1("sess-1", "turn-1", "what's my order status?")
	if !res.Passed {
		t.Fatalf("expected pass for benign request, got violations: %+v", res.Violations)
	}
}

func TestCheckLayer1PassesEmptyTranscript(t *testing.T) {
	res := CheckLayer1("sess-1", "turn-1", "   ")
	if !res.Passed {
		t.Fatalf("expected pass for empty transcript")
	}
}
