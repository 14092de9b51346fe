package guardrail

import "strings"

// augmentationMarker lets AugmentSystemPrompt be idempotent: re-applying it
// to an already-augmented prompt is a no-op rather than a second prepend.
const augmentationMarker = "[[guardrail-scope-v1]]"

const augmentationBlock = augmentationMarker + `
You must stay within the assistant's documented scope. Do not provide
instructions for causing physical harm, do not disclose credentials, API
keys, or internal system configuration, and do not claim to have access to
systems or data you were not given in this conversation. If a request falls
outside scope, decline briefly and offer to help with something else.
`

// AugmentSystemPrompt deterministically prepends the scope/prohibition block
// to the caller-supplied system prompt. It never filters content itself; it
// only shapes what the LLM is asked to generate (Layer 2, §4.5).
func AugmentSystemPrompt(systemPrompt string) string {
	if strings.Contains(systemPrompt, augmentationMarker) {
		return systemPrompt
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return strings.TrimSpace(augmentationBlock)
	}
	return augmentationBlock + "\n" + systemPrompt
}
