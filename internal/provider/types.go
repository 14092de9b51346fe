// Package provider defines the four narrow capability surfaces the
// orchestrator drives (ASR, LLM, Translate, TTS, §4.2), the retry wrapper
// every concrete adapter shares, and the provider registry with fallback
// (§4.7 in spirit, realized here as the provider-selection layer).
package provider

import (
	"context"
	"fmt"
	"time"
)

// ExternalProviderError is the typed error every adapter returns on failure,
// distinguishing retryable (transient: 5xx, network, timeout) from
// permanent (4xx except 429) conditions per §7's error taxonomy.
type ExternalProviderError struct {
	Provider  string
	Op        string
	Retryable bool
	Cancelled bool
	Err       error
}

func (e *ExternalProviderError) Error() string {
	return fmt.Sprintf("%s.%s: %v (retryable=%v)", e.Provider, e.Op, e.Err, e.Retryable)
}

func (e *ExternalProviderError) Unwrap() error { return e.Err }

// ASRResult is transcribe's output.
type ASRResult struct {
	Text             string
	DetectedLanguage string
	Confidence       float64
	DurationMs       int64
	LatencyMs        int64
}

// ASRClient transcribes audio to text.
type ASRClient interface {
	Transcribe(ctx context.Context, audio []byte, languageHint string, sessionID, turnID string) (ASRResult, error)
}

// Message is one chat turn in the LLM request.
type Message struct {
	Role    string // "system" | "user" | "assistant"
	Content string
}

// LLMResult is generate's output.
type LLMResult struct {
	Text         string
	InputTokens  int
	OutputTokens int
	FinishReason string
	LatencyMs    int64
}

// ModelMetadata describes one servable model for the catalog RPC (§6).
type ModelMetadata struct {
	ID               string
	ContextWindow    int
	OutputCap        int
	PricePerInputTok float64
	PricePerOutputTok float64
	StreamingSupport bool
}

// LLMClient generates a chat completion. Providers {sarvam, openai,
// anthropic} all implement this one contract; provider-specific wire shapes
// never leak past the adapter.
type LLMClient interface {
	Generate(ctx context.Context, messages []Message, temperature float64, maxTokens int, sessionID, turnID string) (LLMResult, error)
	ModelMetadata() []ModelMetadata
	Name() string
}

// TranslateConfig enumerates every knob translate() accepts.
type TranslateConfig struct {
	FormalityLevel      int // 0-100
	CodeMixingEnabled   bool
	EnglishRatio        int // 0-100
	PreserveDomains     []string // subset of {tech, business, medical}
}

// TranslateResult is translate's output.
type TranslateResult struct {
	Text      string
	CharCount int
	LatencyMs int64
}

// TranslateClient translates text between language codes.
type TranslateClient interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string, cfg TranslateConfig) (TranslateResult, error)
}

// TTSTuning bounds the prosody knobs the spec names.
type TTSTuning struct {
	Pitch    float64 // [-0.75, 0.75]
	Pace     float64 // [0.3, 3.0]
	Loudness float64 // [0, 3.0]
}

// TTSResult is synthesize's output.
type TTSResult struct {
	AudioBytes   []byte
	Codec        string
	SampleRate   int
	CharCount    int
	LatencyMs    int64
}

// TTSClient synthesizes speech. Providers must advertise language support;
// the orchestrator never asks a provider for an unsupported language.
type TTSClient interface {
	Synthesize(ctx context.Context, text, voiceID, language, codec string, sampleRate int, tuning TTSTuning, sessionID, turnID string) (TTSResult, error)
	SupportsLanguage(language string) bool
	Name() string
}

// RetryPolicy bounds a provider call's retry behavior.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	CapDelay    time.Duration
}

// DefaultRetryPolicy matches §4.2: 3 attempts, 300ms base, 5s cap.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 300 * time.Millisecond, CapDelay: 5 * time.Second}
}
