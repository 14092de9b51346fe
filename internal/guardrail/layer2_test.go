package guardrail

import (
	"strings"
	"testing"
)

func TestAugmentSystemPromptIsIdempotent(t *testing.T) {
	once := AugmentSystemPrompt("You are a helpful support agent.")
	twice := AugmentSystemPrompt(once)
	if once != twice {
		t.Fatalf("augmentation not idempotent:\nonce=%q\ntwice=%q", once, twice)
	}
	if !strings.Contains(once, "You are a helpful support agent.") {
		t.Fatalf("original prompt lost after augmentation")
	}
}

func TestAugmentSystemPromptHandlesEmpty(t *testing.T) {
	out := AugmentSystemPrompt("")
	if out == "" {
		t.Fatalf("expected non-empty augmentation block for empty prompt")
	}
}
