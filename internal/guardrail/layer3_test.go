package guardrail

import (
	"strings"
	"testing"
)

func TestCheckLayer3BlocksPIILeakage(t *testing.T) {
	res := CheckLayer3("sess-1", "turn-1", "you can reach support at agent@example.com")
	if res.Passed {
		t.Fatalf("expected block for email leakage")
	}
	if res.SafeResponse == "" {
		t.Fatalf("expected safe fallback response")
	}
}

func TestCheckLayer3PassesCleanText(t *testing.T) {
	res := CheckLayer3("sess-1", "turn-1", "Your order ships tomorrow.")
	if !res.Passed {
		t.Fatalf("expected pass, got violations: %+v", res.Violations)
	}
}

func TestCheckLayer3BlocksLengthOverrun(t *testing.T) {
	res := CheckLayer3("sess-1", "turn-1", strings.Repeat("a", maxResponseLength+1))
	if res.Passed {
		t.Fatalf("expected block for length overrun")
	}
	if res.Violations[0].RuleID != "length_overrun" {
		t.Fatalf("rule id = %q, want length_overrun", res.Violations[0].RuleID)
	}
}
