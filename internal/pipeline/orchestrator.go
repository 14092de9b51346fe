// Package pipeline implements the turn orchestrator (§4.8): the single
// `ProcessTurn` entry point that composes ASR -> (RAG) -> guardrail L1 ->
// LLM (cache-checked) -> guardrail L3 -> Translate -> TTS, with per-stage
// timing, cost accounting, retries, fallback and cooperative cancellation
// at every checkpoint. Grounded on the teacher's Orchestrator
// struct-composition style (holds the session manager, provider clients,
// and a metrics handle) generalized from its streaming voice-assistant
// semantics to the spec's turn-in/turn-out contract.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sarvam-ai/turnengine/internal/cache"
	"github.com/sarvam-ai/turnengine/internal/cost"
	"github.com/sarvam-ai/turnengine/internal/guardrail"
	"github.com/sarvam-ai/turnengine/internal/observability"
	"github.com/sarvam-ai/turnengine/internal/optimization"
	"github.com/sarvam-ai/turnengine/internal/provider"
	"github.com/sarvam-ai/turnengine/internal/session"
	"github.com/sarvam-ai/turnengine/internal/store"
	"github.com/sarvam-ai/turnengine/internal/turn"
	"github.com/sarvam-ai/turnengine/internal/voiceregistry"
)

// RAGChunk is one retrieved document chunk prepended to the LLM prompt.
// RAG document ingestion itself is out of this repository's scope (§1); the
// orchestrator only consumes whatever a Retriever returns.
type RAGChunk struct {
	Text   string
	Source string
	Score  float64
}

// Retriever fetches up to k chunks relevant to query. NoopRetriever is used
// when no ingestion pipeline is wired, which makes RAGDepth effectively 0
// regardless of the tier's configured depth.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]RAGChunk, error)
}

type NoopRetriever struct{}

func (NoopRetriever) Retrieve(ctx context.Context, query string, k int) ([]RAGChunk, error) {
	return nil, nil
}

// Pricing bundles the per-unit prices the cost formulas in §4.6 need.
// LLM pricing comes from each provider's own ModelMetadata table instead.
type Pricing struct {
	ASRPerSecond          decimal.Decimal
	TranslatePerChar      decimal.Decimal
	TTSPerCharByProvider  map[string]decimal.Decimal
}

func DefaultPricing() Pricing {
	return Pricing{
		ASRPerSecond:     decimal.NewFromFloat(0.0008),
		TranslatePerChar: decimal.NewFromFloat(0.00002),
		TTSPerCharByProvider: map[string]decimal.Decimal{
			"sarvam":     decimal.NewFromFloat(0.00003),
			"elevenlabs": decimal.NewFromFloat(0.00012),
		},
	}
}

// TurnInput is the union the spec's two entry shapes collapse to: either
// AudioBytes or Text is set; ASR is skipped for a text-entered turn.
type TurnInput struct {
	SessionID          string
	OptimizationTier   string
	TargetLanguage     string
	TranslationConfig  provider.TranslateConfig
	SystemPrompt       string

	AudioBytes     []byte
	AudioFormat    string
	HintedLanguage string

	Text string

	LLMProvider      string
	TTSVoiceID       string
	TTSProvider      string
	TTSFallback      string
	TTSCodec         string
	TTSSampleRate    int
	TTSTuning        provider.TTSTuning
}

// TurnResult is the user-visible outcome, composed exactly once per turn
// (§4.8 step 12); the client never sees a partial result.
type TurnResult struct {
	TurnID          string
	Status          turn.Status
	InterruptReason turn.InterruptReason

	Transcript     string
	ResponseText   string
	TranslatedText string
	AudioBytes     []byte
	AudioCodec     string
	AudioRef       string

	Latency       turn.StageLatencies
	GuardrailSafe bool
}

// Orchestrator wires every component named in §4 into the single
// `ProcessTurn` pipeline. All fields are long-lived handles constructed at
// startup and injected — no package-level singletons (DESIGN NOTES).
type Orchestrator struct {
	Sessions *session.Manager
	Fabric   *turn.Fabric

	ASR       provider.ASRClient
	LLMs      *provider.LLMRegistry
	Translate provider.TranslateClient
	TTS       provider.TTSClient // expected to be a provider.FailoverTTS in production wiring

	LLMCache *cache.LLMCache
	TTSCache *cache.TTSCache

	Cost  *cost.Recorder
	Store store.Store

	Voices    *voiceregistry.Registry
	Retriever Retriever

	Metrics *observability.Metrics

	Pricing Pricing

	RetryPolicy  provider.RetryPolicy
	TurnDeadline time.Duration

	DefaultTTSProvider  string
	FallbackTTSProvider string

	// ASRConfidenceFloor below which the ASR result is treated as unusable
	// and the turn short-circuits with a clarification response instead of
	// proceeding to the LLM.
	ASRConfidenceFloor float64
}

func New(sessions *session.Manager, fabric *turn.Fabric, st store.Store) *Orchestrator {
	return &Orchestrator{
		Sessions:           sessions,
		Fabric:             fabric,
		Store:              st,
		LLMCache:           cache.NewLLMCache(100),
		TTSCache:           cache.NewTTSCache(),
		Cost:               cost.NewRecorder(store.NewCostAdapter(st)),
		Retriever:          NoopRetriever{},
		Pricing:            DefaultPricing(),
		RetryPolicy:        provider.DefaultRetryPolicy(),
		TurnDeadline:       12 * time.Second,
		ASRConfidenceFloor: 0.35,
	}
}

func (o *Orchestrator) observeStage(sessionID, stage string, d time.Duration) {
	if o.Metrics != nil {
		o.Metrics.ObserveTurnStage(stage, d)
	}
	if o.Cost != nil {
		o.Cost.ObserveStageLatency(sessionID, stage, float64(d.Milliseconds()))
	}
}

// ProcessTurn is the single entry point: one user utterance in, one
// TurnResult out, per §1/§4.8.
func (o *Orchestrator) ProcessTurn(ctx context.Context, in TurnInput) (*TurnResult, error) {
	turnID := uuid.NewString()

	// Enforce at-most-one-active-turn: cancel any overlapping older turn
	// with ReasonReplaced before this one starts (§4.7/§4.9/§7).
	if prevTurnID, err := o.Sessions.StartTurn(in.SessionID, turnID); err == nil && prevTurnID != "" {
		o.Fabric.Cancel(in.SessionID, prevTurnID, turn.ReasonReplaced)
	}

	tok := o.Fabric.StartTurn(ctx, in.SessionID, turnID)
	rec := turn.New(turnID, in.SessionID, in.OptimizationTier, in.TargetLanguage)

	if o.Store != nil {
		_ = o.Store.InsertTurn(ctx, store.TurnRow{
			TurnID: turnID, SessionID: in.SessionID, StartedAt: rec.StartedAt, Status: string(turn.StatusActive),
		})
	}

	deadlineCtx, cancelDeadline := context.WithTimeout(tok.Context(), o.turnDeadline())
	defer cancelDeadline()
	deadlineDone := make(chan struct{})
	go func() {
		select {
		case <-deadlineCtx.Done():
			if deadlineCtx.Err() == context.DeadlineExceeded {
				o.Fabric.Cancel(in.SessionID, turnID, turn.ReasonTimeout)
			}
		case <-deadlineDone:
		}
	}()
	defer close(deadlineDone)

	result, err := o.runStages(deadlineCtx, tok, rec, in)

	o.Sessions.EndTurn(in.SessionID, turnID)
	o.Fabric.FinishTurn(in.SessionID, turnID)
	if o.Cost != nil {
		o.Cost.RecordTurnOutcome(in.SessionID, string(rec.Status))
	}
	if o.Store != nil {
		_ = o.Store.UpdateTurn(ctx, turnRowFromRecord(rec))
	}
	return result, err
}

func (o *Orchestrator) turnDeadline() time.Duration {
	if o.TurnDeadline <= 0 {
		return 12 * time.Second
	}
	return o.TurnDeadline
}

func turnRowFromRecord(t *turn.Turn) store.TurnRow {
	return store.TurnRow{
		TurnID:             t.ID,
		SessionID:          t.SessionID,
		StartedAt:          t.StartedAt,
		FinishedAt:         t.FinishedAt,
		Status:             string(t.Status),
		InterruptReason:    string(t.InterruptReason),
		ASRLatencyMs:       t.Latency.ASRMs,
		LLMLatencyMs:       t.Latency.LLMMs,
		TranslateLatencyMs: t.Latency.TranslateMs,
		TTSLatencyMs:       t.Latency.TTSMs,
		TotalLatencyMs:     t.Latency.TotalMs,
		TranscriptText:     t.TranscriptText,
		ResponseText:       t.ResponseText,
		TranslatedText:     t.TranslatedText,
		AudioRef:           t.AudioRef,
		GuardrailSafe:      t.GuardrailSafe,
	}
}

func isCancelled(tok *turn.Token, err error) bool {
	if tok.IsCancelled() {
		return true
	}
	var c *turn.Cancelled
	return errors.As(err, &c)
}

// runStages executes the pipeline body; the caller (ProcessTurn) owns
// session/fabric bookkeeping that must happen regardless of outcome.
func (o *Orchestrator) runStages(ctx context.Context, tok *turn.Token, rec *turn.Turn, in TurnInput) (*TurnResult, error) {
	profile := optimization.Resolve(optimization.Tier(in.OptimizationTier))

	if tok.IsCancelled() {
		return o.finishInterrupted(rec, tok.Reason())
	}

	transcript, detectedLanguage, confidence, shortCircuitText, err := o.runASR(ctx, tok, rec, in)
	if err != nil {
		if isCancelled(tok, err) {
			return o.finishInterrupted(rec, tok.Reason())
		}
		return o.finishFailed(rec)
	}
	rec.TranscriptText = transcript

	if shortCircuitText != "" {
		return o.finalizeWithText(ctx, tok, rec, in, shortCircuitText, false, detectedLanguage)
	}

	// Guardrail layer 1 (pre-LLM), §4.8 step 3.
	l1 := guardrail.CheckLayer1(in.SessionID, rec.ID, transcript)
	o.recordViolations(ctx, l1.Violations, 1)
	if !l1.Passed {
		return o.finalizeWithText(ctx, tok, rec, in, l1.SafeResponse, false, detectedLanguage)
	}

	if tok.IsCancelled() {
		return o.finishInterrupted(rec, tok.Reason())
	}

	responseText, guardrailSafe, _, err := o.runLLMStage(ctx, tok, rec, in, transcript, profile)
	if err != nil {
		if isCancelled(tok, err) {
			return o.finishInterrupted(rec, tok.Reason())
		}
		return o.finishFailed(rec)
	}

	return o.finalizeWithText(ctx, tok, rec, in, responseText, guardrailSafe, detectedLanguage)
}

// runASR executes the ASR stage, or is a no-op for a text-entered turn. A
// non-empty shortCircuitText signals an unusable-confidence clarification
// response that must skip straight to TTS per §4.8 step 2.
func (o *Orchestrator) runASR(ctx context.Context, tok *turn.Token, rec *turn.Turn, in TurnInput) (transcript, detectedLanguage string, confidence float64, shortCircuitText string, err error) {
	if len(in.AudioBytes) == 0 {
		return in.Text, in.TargetLanguage, 1, "", nil
	}
	if o.ASR == nil {
		return "", "", 0, "", &provider.ExternalProviderError{Provider: "asr", Op: "transcribe", Err: fmt.Errorf("no ASR client configured")}
	}

	start := time.Now()
	var res provider.ASRResult
	attemptErr := provider.Attempt(ctx, tok, o.RetryPolicy, func(ctx context.Context) error {
		var e error
		res, e = o.ASR.Transcribe(ctx, in.AudioBytes, in.HintedLanguage, in.SessionID, rec.ID)
		return e
	})
	elapsed := time.Since(start)
	rec.Latency.ASRMs = elapsed.Milliseconds()
	o.observeStage(in.SessionID, "asr", elapsed)

	if attemptErr != nil {
		return "", "", 0, "", attemptErr
	}
	if tok.IsCancelled() {
		return "", "", 0, "", &turn.Cancelled{SessionID: in.SessionID, TurnID: rec.ID, Reason: tok.Reason()}
	}

	if o.Cost != nil {
		o.Cost.Record(cost.Entry{
			SessionID: in.SessionID, TurnID: rec.ID, Service: cost.ServiceASR, Provider: "asr",
			Operation: "transcribe", UnitType: cost.UnitAudioMs,
			Units:            decimal.NewFromInt(res.DurationMs),
			Cost:             cost.ASRCost(res.DurationMs, o.Pricing.ASRPerSecond),
			OptimizationTier: in.OptimizationTier,
		})
		o.Cost.ObserveASRConfidence(in.SessionID, res.Confidence)
	}

	if res.Confidence < o.ASRConfidenceFloor {
		return res.Text, res.DetectedLanguage, res.Confidence, "Sorry, I didn't quite catch that — could you repeat it?", nil
	}
	return res.Text, res.DetectedLanguage, res.Confidence, "", nil
}

func (o *Orchestrator) recordViolations(ctx context.Context, violations []guardrail.Violation, layer int) {
	for _, v := range violations {
		if o.Store != nil {
			_ = o.Store.InsertViolation(ctx, store.ViolationRow{
				SessionID: v.SessionID, TurnID: v.TurnID, Layer: int(v.Layer), RuleID: v.RuleID,
				Severity: string(v.Severity), RedactedInput: v.RedactedInput, RedactedOutput: v.RedactedOutput,
				SafeFallback: v.SafeFallback, Metadata: v.Metadata, CreatedAt: v.Timestamp,
			})
		}
		if o.Cost != nil {
			o.Cost.RecordGuardrailViolation(v.SessionID, layer)
		}
	}
}

// runLLMStage implements §4.8 steps 4-8: RAG, exact/semantic cache lookup,
// generation, layer-3 guardrail, and the cache write-back. Returns the
// final response text, whether it is guardrail-safe, and whether it was
// newly generated (vs. served from cache or a guardrail short-circuit).
// The cache write for a fresh, guardrail-safe response happens in here.
func (o *Orchestrator) runLLMStage(ctx context.Context, tok *turn.Token, rec *turn.Turn, in TurnInput, transcript string, profile optimization.Profile) (text string, guardrailSafe bool, newlyGenerated bool, err error) {
	var ragChunks []RAGChunk
	if profile.RAGDepth > 0 && o.Retriever != nil {
		ragChunks, _ = o.Retriever.Retrieve(ctx, transcript, profile.RAGDepth)
	}

	lookup := o.LLMCache.Get(transcript, in.OptimizationTier, profile.SemanticCacheEnabled, profile.SemanticCacheSimilarityThresh)
	cacheOp := "exact"
	if lookup.Semantic {
		cacheOp = "semantic"
	}

	var generated string
	if lookup.Hit {
		generated = lookup.Response.ResponseText
		if o.Cost != nil {
			counterfactual := cost.LLMCost(lookup.Response.TokenCount, lookup.Response.TokenCount/3, decimal.NewFromFloat(0.0000005), decimal.NewFromFloat(0.0000015))
			o.Cost.Record(cost.NewCacheHitEntry(in.SessionID, rec.ID, cost.ServiceLLM, "cache", cacheOp, in.OptimizationTier, counterfactual))
		}
	} else {
		llmClient, ok := o.LLMs.Get(in.LLMProvider)
		if !ok {
			return "", false, false, &provider.ExternalProviderError{Provider: "llm", Op: "generate", Err: fmt.Errorf("no LLM provider available")}
		}

		systemPrompt := guardrail.AugmentSystemPrompt(in.SystemPrompt)
		messages := []provider.Message{{Role: "system", Content: buildSystemPrompt(systemPrompt, ragChunks)}, {Role: "user", Content: transcript}}

		start := time.Now()
		var res provider.LLMResult
		cached, sfErr, _ := o.LLMCache.SingleFlight(ctx, transcript, in.OptimizationTier, func() (cache.CachedLLMResponse, error) {
			attemptErr := provider.Attempt(ctx, tok, o.RetryPolicy, func(ctx context.Context) error {
				var e error
				res, e = llmClient.Generate(ctx, messages, profile.LLMTemperature, profile.LLMMaxTokens, in.SessionID, rec.ID)
				return e
			})
			if attemptErr != nil {
				return cache.CachedLLMResponse{}, attemptErr
			}
			if o.Cost != nil {
				pricing := firstModelPricing(llmClient)
				o.Cost.Record(cost.Entry{
					SessionID: in.SessionID, TurnID: rec.ID, Service: cost.ServiceLLM, Provider: llmClient.Name(),
					Operation: "generate", UnitType: cost.UnitTokens,
					Units:            decimal.NewFromInt(int64(res.InputTokens + res.OutputTokens)),
					Cost:             cost.LLMCost(res.InputTokens, res.OutputTokens, pricing.in, pricing.out),
					OptimizationTier: in.OptimizationTier,
				})
			}
			return cache.CachedLLMResponse{Query: transcript, ResponseText: res.Text, OptimizationTier: in.OptimizationTier, GuardrailSafe: true, TokenCount: res.InputTokens + res.OutputTokens}, nil
		})
		elapsed := time.Since(start)
		rec.Latency.LLMMs = elapsed.Milliseconds()
		o.observeStage(in.SessionID, "llm", elapsed)

		if sfErr != nil {
			if isCancelled(tok, sfErr) {
				return "", false, false, sfErr
			}
			var perr *provider.ExternalProviderError
			if errors.As(sfErr, &perr) && !perr.Retryable {
				// LLM fails non-retryably: safe generic response, turn stays
				// successful from the user's point of view (§4.8 Failure policy).
				return "I'm having trouble generating a response right now. Could you try again in a moment?", false, false, nil
			}
			return "", false, false, sfErr
		}
		generated = cached.ResponseText
		newlyGenerated = true
	}

	if tok.IsCancelled() {
		return "", false, false, &turn.Cancelled{SessionID: in.SessionID, TurnID: rec.ID, Reason: tok.Reason()}
	}

	// Guardrail layer 3 runs regardless of cache hit vs fresh generation
	// (§4.8 step 5 routes a cache hit straight to step 7).
	l3 := guardrail.CheckLayer3(in.SessionID, rec.ID, generated)
	o.recordViolations(ctx, l3.Violations, 3)
	if !l3.Passed {
		return l3.SafeResponse, false, false, nil
	}

	if newlyGenerated {
		o.LLMCache.Store(cache.CachedLLMResponse{
			Query: transcript, ResponseText: generated, OptimizationTier: in.OptimizationTier,
			GuardrailSafe: true, TokenCount: len(strings.Fields(generated)), TTL: profile.CacheTTL,
		})
	}
	return generated, true, newlyGenerated, nil
}

func buildSystemPrompt(systemPrompt string, chunks []RAGChunk) string {
	if len(chunks) == 0 {
		return systemPrompt
	}
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\nRelevant context:\n")
	for _, c := range chunks {
		b.WriteString("- ")
		b.WriteString(c.Text)
		b.WriteString("\n")
	}
	return b.String()
}

type llmPricing struct{ in, out decimal.Decimal }

func firstModelPricing(c provider.LLMClient) llmPricing {
	meta := c.ModelMetadata()
	if len(meta) == 0 {
		return llmPricing{in: decimal.NewFromFloat(0.000001), out: decimal.NewFromFloat(0.000002)}
	}
	return llmPricing{in: decimal.NewFromFloat(meta[0].PricePerInputTok), out: decimal.NewFromFloat(meta[0].PricePerOutputTok)}
}

// finalizeWithText runs Translate + voice resolution + TTS and composes the
// final TurnResult (§4.8 steps 9-12).
func (o *Orchestrator) finalizeWithText(ctx context.Context, tok *turn.Token, rec *turn.Turn, in TurnInput, responseText string, guardrailSafe bool, sourceLanguage string) (*TurnResult, error) {
	rec.ResponseText = responseText
	rec.GuardrailSafe = guardrailSafe

	translated := ""
	if in.TargetLanguage != "" && sourceLanguage != "" && !strings.EqualFold(in.TargetLanguage, sourceLanguage) && o.Translate != nil {
		if tok.IsCancelled() {
			return o.finishInterrupted(rec, tok.Reason())
		}
		start := time.Now()
		res, err := o.Translate.Translate(ctx, responseText, sourceLanguage, in.TargetLanguage, in.TranslationConfig)
		elapsed := time.Since(start)
		rec.Latency.TranslateMs = elapsed.Milliseconds()
		o.observeStage(in.SessionID, "translate", elapsed)
		if err != nil {
			if isCancelled(tok, err) {
				return o.finishInterrupted(rec, tok.Reason())
			}
			// Translate fails -> use untranslated response and continue (§4.8
			// Failure policy).
		} else {
			translated = res.Text
			if o.Cost != nil {
				o.Cost.Record(cost.Entry{
					SessionID: in.SessionID, TurnID: rec.ID, Service: cost.ServiceTranslate, Provider: "translate",
					Operation: "translate", UnitType: cost.UnitChars,
					Units:            decimal.NewFromInt(int64(res.CharCount)),
					Cost:             cost.CharCost(res.CharCount, o.Pricing.TranslatePerChar),
					OptimizationTier: in.OptimizationTier,
				})
			}
		}
	}
	rec.TranslatedText = translated

	spokenText := responseText
	spokenLanguage := sourceLanguage
	if translated != "" {
		spokenText = translated
		spokenLanguage = in.TargetLanguage
	}
	if spokenLanguage == "" {
		spokenLanguage = voiceregistry.FallbackLanguage
	}

	audioBytes, codec, audioRef, err := o.runTTS(ctx, tok, rec, in, spokenText, spokenLanguage)
	if err != nil {
		if isCancelled(tok, err) {
			return o.finishInterrupted(rec, tok.Reason())
		}
		// Both TTS providers failed: turn stays successful with null audio
		// (§4.8 Failure policy); the client falls back to reading text.
	}
	rec.AudioRef = audioRef

	rec.Finish(turn.StatusSuccessful, "")
	return &TurnResult{
		TurnID: rec.ID, Status: rec.Status, Transcript: rec.TranscriptText, ResponseText: rec.ResponseText,
		TranslatedText: rec.TranslatedText, AudioBytes: audioBytes, AudioCodec: codec, AudioRef: audioRef,
		Latency: rec.Latency, GuardrailSafe: rec.GuardrailSafe,
	}, nil
}

func (o *Orchestrator) runTTS(ctx context.Context, tok *turn.Token, rec *turn.Turn, in TurnInput, text, language string) (audio []byte, codec string, ref string, err error) {
	if o.TTS == nil || strings.TrimSpace(text) == "" {
		return nil, "", "", nil
	}
	if tok.IsCancelled() {
		return nil, "", "", &turn.Cancelled{SessionID: in.SessionID, TurnID: rec.ID, Reason: tok.Reason()}
	}

	requestedProvider := in.TTSProvider
	if requestedProvider == "" {
		requestedProvider = o.DefaultTTSProvider
	}
	fallbackProvider := in.TTSFallback
	if fallbackProvider == "" {
		fallbackProvider = o.FallbackTTSProvider
	}

	voiceLookup := o.Voices.Resolve(requestedProvider, fallbackProvider, language, in.TTSVoiceID)
	voice := voiceLookup.Voice

	codec = in.TTSCodec
	if codec == "" {
		codec = "wav"
	}
	sampleRate := in.TTSSampleRate
	if sampleRate == 0 {
		sampleRate = 22050
	}

	key := cache.TTSKey(text, voice.VoiceID, voice.Provider, codec, sampleRate, in.TTSTuning)
	if cached, ok := o.TTSCache.Get(key); ok {
		if o.Cost != nil {
			counterfactual := cost.CharCost(len([]rune(text)), o.Pricing.TTSPerCharByProvider[voice.Provider])
			o.Cost.Record(cost.NewCacheHitEntry(in.SessionID, rec.ID, cost.ServiceTTS, voice.Provider, "synthesize", in.OptimizationTier, counterfactual))
		}
		return cached.Audio, cached.Codec, key, nil
	}

	start := time.Now()
	result, err, _ := o.TTSCache.SingleFlight(key, func() (cache.CachedTTSResponse, error) {
		var res provider.TTSResult
		attemptErr := provider.Attempt(ctx, tok, o.RetryPolicy, func(ctx context.Context) error {
			var e error
			res, e = o.TTS.Synthesize(ctx, text, voice.VoiceID, language, codec, sampleRate, in.TTSTuning, in.SessionID, rec.ID)
			return e
		})
		if attemptErr != nil {
			return cache.CachedTTSResponse{}, attemptErr
		}
		return cache.CachedTTSResponse{
			TextHash: key, VoiceID: voice.VoiceID, Provider: voice.Provider, Codec: res.Codec,
			SampleRate: res.SampleRate, Audio: res.AudioBytes,
		}, nil
	})
	elapsed := time.Since(start)
	rec.Latency.TTSMs = elapsed.Milliseconds()
	o.observeStage(in.SessionID, "tts", elapsed)

	if err != nil {
		return nil, "", "", err
	}

	o.TTSCache.Store(key, result)
	if o.Cost != nil {
		o.Cost.Record(cost.Entry{
			SessionID: in.SessionID, TurnID: rec.ID, Service: cost.ServiceTTS, Provider: voice.Provider,
			Operation: "synthesize", UnitType: cost.UnitChars,
			Units:            decimal.NewFromInt(int64(len([]rune(text)))),
			Cost:             cost.CharCost(len([]rune(text)), o.Pricing.TTSPerCharByProvider[voice.Provider]),
			OptimizationTier: in.OptimizationTier,
		})
	}
	return result.Audio, result.Codec, key, nil
}

func (o *Orchestrator) finishInterrupted(rec *turn.Turn, reason turn.InterruptReason) (*TurnResult, error) {
	if reason == "" {
		reason = turn.ReasonUserBargeIn
	}
	rec.Finish(turn.StatusInterrupted, reason)
	return &TurnResult{TurnID: rec.ID, Status: rec.Status, InterruptReason: rec.InterruptReason, Latency: rec.Latency}, nil
}

func (o *Orchestrator) finishFailed(rec *turn.Turn) (*TurnResult, error) {
	rec.Finish(turn.StatusFailed, "")
	return &TurnResult{TurnID: rec.ID, Status: rec.Status, Latency: rec.Latency}, nil
}
