// Package guardrail implements the three-layer guardrail pipeline (§4.5):
// a pre-LLM block check, an in-prompt augmentation step, and a post-LLM
// content check. All three return a CheckResult — a tagged variant, never a
// structurally-inspected result — so callers branch on Passed vs Blocked and
// nothing else.
package guardrail

import "time"

// Severity is the graded risk level of a detected violation.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Layer identifies which guardrail pass produced a violation.
type Layer int

const (
	LayerPreInput  Layer = 1
	LayerInPrompt  Layer = 2
	LayerPostOutput Layer = 3
)

// Violation is the append-only record persisted for every detected rule hit.
type Violation struct {
	SessionID        string
	TurnID           string
	Layer            Layer
	RuleID           string
	Severity         Severity
	RedactedInput    string
	RedactedOutput   string
	SafeFallback     string
	Metadata         map[string]string
	Timestamp        time.Time
}

// CheckResult is the tagged variant every guardrail layer returns.
// Passed=true means no blocking violation; Violations may still be
// non-empty for passed low/medium-severity observations that don't gate.
type CheckResult struct {
	Passed       bool
	Violations   []Violation
	SafeResponse string
}
