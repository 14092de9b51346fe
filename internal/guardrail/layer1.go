package guardrail

import (
	"regexp"
	"strings"
	"time"
)

// blockedPatterns covers prompt-injection and the handful of categories the
// spec names (medical/legal/financial/harmful-content/PII-elicitation)
// generalized from the teacher's destructive-intent/secret-exfiltration
// pattern set into content-safety categories.
var blockedPatterns = []struct {
	re       *regexp.Regexp
	ruleID   string
	severity Severity
}{
	{regexp.MustCompile(`(?i)\b(make|build|synthesize)\b.*\b(weapon|bomb|explosive|nerve agent)\b`), "harmful_content.weapon", SeverityCritical},
	{regexp.MustCompile(`(?i)\bignore\s+(all\s+)?(previous|prior|above)\s+instructions\b`), "prompt_injection.override", SeverityHigh},
	{regexp.MustCompile(`(?i)\byou\s+are\s+now\s+(in\s+)?(developer|dan|jailbreak)\s+mode\b`), "prompt_injection.persona_override", SeverityHigh},
	{regexp.MustCompile(`(?i)\b(reveal|print|show)\b.*\b(system prompt|api[_ -]?key|password|secret)\b`), "pii_elicitation.secret_disclosure", SeverityHigh},
	{regexp.MustCompile(`(?i)\bhow (do|can) i (get|buy|obtain)\b.*\b(prescription|controlled substance)\b.*\bwithout\b`), "medical.controlled_substance_evasion", SeverityMedium},
}

var (
	highRiskKeywords   = []string{"exfiltrate", "self-harm", "suicide method", "launder money", "insider trading"}
	mediumRiskKeywords = []string{"lawsuit", "diagnosis", "tax evasion"}
)

// blockSeverityGate is the minimum severity that short-circuits the
// pipeline; anything below is recorded but does not block.
const blockSeverityGate = SeverityMedium

var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// CheckLayer1 runs the pre-LLM check against the raw user transcript.
func CheckLayer1(sessionID, turnID, transcript string) CheckResult {
	lower := strings.ToLower(strings.TrimSpace(transcript))
	if lower == "" {
		return CheckResult{Passed: true}
	}

	for _, p := range blockedPatterns {
		if p.re.MatchString(lower) {
			return blockResult(sessionID, turnID, transcript, p.ruleID, p.severity)
		}
	}
	for _, kw := range highRiskKeywords {
		if strings.Contains(lower, kw) {
			return blockResult(sessionID, turnID, transcript, "keyword.high_risk", SeverityHigh)
		}
	}
	for _, kw := range mediumRiskKeywords {
		if strings.Contains(lower, kw) {
			return blockResult(sessionID, turnID, transcript, "keyword.medium_risk", SeverityMedium)
		}
	}

	return CheckResult{Passed: true}
}

func blockResult(sessionID, turnID, transcript, ruleID string, severity Severity) CheckResult {
	if severityRank[severity] < severityRank[blockSeverityGate] {
		return CheckResult{Passed: true, Violations: []Violation{{
			SessionID: sessionID, TurnID: turnID, Layer: LayerPreInput, RuleID: ruleID,
			Severity: severity, RedactedInput: redactSample(transcript), Timestamp: time.Now().UTC(),
		}}}
	}
	safe := safeResponseFor(ruleID)
	return CheckResult{
		Passed:       false,
		SafeResponse: safe,
		Violations: []Violation{{
			SessionID:      sessionID,
			TurnID:         turnID,
			Layer:          LayerPreInput,
			RuleID:         ruleID,
			Severity:       severity,
			RedactedInput:  redactSample(transcript),
			SafeFallback:   safe,
			Timestamp:      time.Now().UTC(),
		}},
	}
}

func safeResponseFor(ruleID string) string {
	category := strings.SplitN(ruleID, ".", 2)[0]
	switch category {
	case "harmful_content":
		return "I can't help with anything that could cause harm. Is there something else I can help you with?"
	case "prompt_injection":
		return "I'm not able to change how I operate based on instructions embedded in a message. How can I help you today?"
	case "pii_elicitation":
		return "I can't share credentials, secrets, or system configuration details. Is there something else I can help with?"
	case "medical":
		return "I'm not able to help with that. For medical guidance, please consult a licensed professional."
	default:
		return "I'm not able to help with that request. Is there something else I can do for you?"
	}
}

func redactSample(s string) string {
	const maxSampleLen = 200
	if len(s) <= maxSampleLen {
		return s
	}
	return s[:maxSampleLen] + "..."
}
