package guardrail

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// PII patterns, ordered card-before-phone so a 13-19 digit card number is
// never misclassified as a phone number.
var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	cardPattern  = regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`)
	phonePattern = regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`)
)

var prohibitedContentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bhere (is|are) (the|a) (bomb|explosive|weapon) (recipe|instructions?)\b`),
}

const maxResponseLength = 4000

const safeFallbackResponse = "I wasn't able to produce a safe response to that. Could you rephrase or ask something else?"

// redactPII masks common high-risk PII patterns in generated text, mirroring
// the pre-input redaction helper but applied to model output.
func redactPII(input string) (redacted string, changed bool) {
	out := input

	next := emailPattern.ReplaceAllString(out, "[REDACTED_EMAIL]")
	changed = changed || next != out
	out = next

	next = cardPattern.ReplaceAllString(out, "[REDACTED_CARD]")
	changed = changed || next != out
	out = next

	next = phonePattern.ReplaceAllString(out, "[REDACTED_PHONE]")
	changed = changed || next != out
	out = next

	return out, changed
}

// CheckLayer3 runs the post-LLM check against generated text. On any
// violation it returns the safe fallback as SafeResponse; the caller must
// use that in place of the generated text and must not cache the result.
func CheckLayer3(sessionID, turnID, generated string) CheckResult {
	if _, piiFound := redactPII(generated); piiFound {
		return CheckResult{
			Passed:       false,
			SafeResponse: safeFallbackResponse,
			Violations: []Violation{{
				SessionID:      sessionID,
				TurnID:         turnID,
				Layer:          LayerPostOutput,
				RuleID:         "pii_leakage",
				Severity:       SeverityHigh,
				RedactedOutput: redactSample(generated),
				SafeFallback:   safeFallbackResponse,
				Timestamp:      time.Now().UTC(),
			}},
		}
	}

	lower := strings.ToLower(generated)
	for _, re := range prohibitedContentPatterns {
		if re.MatchString(lower) {
			return CheckResult{
				Passed:       false,
				SafeResponse: safeFallbackResponse,
				Violations: []Violation{{
					SessionID:      sessionID,
					TurnID:         turnID,
					Layer:          LayerPostOutput,
					RuleID:         "prohibited_content",
					Severity:       SeverityCritical,
					RedactedOutput: redactSample(generated),
					SafeFallback:   safeFallbackResponse,
					Timestamp:      time.Now().UTC(),
				}},
			}
		}
	}

	if len(generated) > maxResponseLength {
		return CheckResult{
			Passed:       false,
			SafeResponse: safeFallbackResponse,
			Violations: []Violation{{
				SessionID:      sessionID,
				TurnID:         turnID,
				Layer:          LayerPostOutput,
				RuleID:         "length_overrun",
				Severity:       SeverityLow,
				RedactedOutput: redactSample(generated),
				SafeFallback:   safeFallbackResponse,
				Metadata:       map[string]string{"length": strconv.Itoa(len(generated))},
				Timestamp:      time.Now().UTC(),
			}},
		}
	}

	return CheckResult{Passed: true}
}
