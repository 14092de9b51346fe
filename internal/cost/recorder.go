// Package cost implements the per-turn cost attribution and session-rollup
// metrics (§4.6, §3 CostEntry/SessionMetrics). All monetary arithmetic uses
// shopspring/decimal to six fractional digits, half-even rounding — floats
// are forbidden here per spec §4.6/§9.
package cost

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Service identifies which external capability a CostEntry attributes to.
type Service string

const (
	ServiceASR       Service = "asr"
	ServiceLLM       Service = "llm"
	ServiceTranslate Service = "translate"
	ServiceTTS       Service = "tts"
)

// UnitType names the billing unit an entry's Units count.
type UnitType string

const (
	UnitTokens   UnitType = "tokens"
	UnitChars    UnitType = "characters"
	UnitAudioMs  UnitType = "audio_ms"
)

// Entry mirrors the CostEntry entity (§3). Invariant: Cached=true implies
// Cost.IsZero().
type Entry struct {
	SessionID        string
	TurnID           string
	Service          Service
	Provider         string
	Operation        string
	Units            decimal.Decimal
	UnitType         UnitType
	Cost             decimal.Decimal
	Cached           bool
	OptimizationTier string
	Timestamp        time.Time
	// CounterfactualCost is populated on cache hits: what the call would
	// have cost had it not been served from cache, for cache-savings
	// reporting.
	CounterfactualCost decimal.Decimal
}

const sixDP = 6

func round6(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(sixDP)
}

// ASRCost computes duration_ms/1000 * price_per_second.
func ASRCost(durationMs int64, pricePerSecond decimal.Decimal) decimal.Decimal {
	seconds := decimal.NewFromInt(durationMs).DivRound(decimal.NewFromInt(1000), sixDP+2)
	return round6(seconds.Mul(pricePerSecond))
}

// LLMCost computes input_tokens*p_in + output_tokens*p_out.
func LLMCost(inputTokens, outputTokens int, pricePerInputTok, pricePerOutputTok decimal.Decimal) decimal.Decimal {
	in := decimal.NewFromInt(int64(inputTokens)).Mul(pricePerInputTok)
	out := decimal.NewFromInt(int64(outputTokens)).Mul(pricePerOutputTok)
	return round6(in.Add(out))
}

// CharCost computes char_count * price_per_char, shared by Translate and TTS.
func CharCost(charCount int, pricePerChar decimal.Decimal) decimal.Decimal {
	return round6(decimal.NewFromInt(int64(charCount)).Mul(pricePerChar))
}

// NewCacheHitEntry builds a zero-cost entry recording a cache hit, with the
// counterfactual cost attached for savings reporting.
func NewCacheHitEntry(sessionID, turnID string, service Service, provider, op string, tier string, counterfactual decimal.Decimal) Entry {
	return Entry{
		SessionID:          sessionID,
		TurnID:             turnID,
		Service:            service,
		Provider:           provider,
		Operation:          op,
		Units:              decimal.Zero,
		Cost:               decimal.Zero,
		Cached:             true,
		OptimizationTier:   tier,
		Timestamp:          time.Now().UTC(),
		CounterfactualCost: counterfactual,
	}
}

// SessionRollup is the running aggregate a SessionMetrics row maintains.
// Running means follow the Welford-style recurrence mean' = mean + (x -
// mean)/n so a long-lived session never re-scans its full history.
type SessionRollup struct {
	SessionID string

	TotalTurns  int
	Successful  int
	Failed      int
	Interrupted int

	meanASRMs       float64
	meanLLMMs       float64
	meanTranslateMs float64
	meanTTSMs       float64
	meanTotalMs     float64
	// nLatency counts samples per stage: asr, llm, translate, tts, total.
	nLatency [5]int

	CacheHitLLMExact    int
	CacheHitLLMSemantic int
	CacheHitTTS         int

	GuardrailViolationsL1 int
	GuardrailViolationsL2 int
	GuardrailViolationsL3 int

	AggregateCost decimal.Decimal
	CacheSavings  decimal.Decimal

	meanASRConfidence float64
	nConfidence       int
}

// Recorder dual-writes CostEntry rows: one in-memory tier for immediate
// reads (session cost/metrics RPCs) and a durable store for persistence.
// The durable store is optional — a nil Store degrades to in-memory-only,
// per spec §7's resource-exhaustion policy (bypass, don't fail the turn).
type Recorder struct {
	mu       sync.Mutex
	entries  []Entry
	rollups  map[string]*SessionRollup
	store    Store
}

// Store is the durable persistence seam; Repository implementations
// (postgres, in-memory) satisfy it. Writes here never block the
// user-facing turn result — callers treat store errors as best-effort.
type Store interface {
	InsertCostEntry(Entry) error
	UpsertSessionMetrics(*SessionRollup) error
}

func NewRecorder(store Store) *Recorder {
	return &Recorder{
		rollups: make(map[string]*SessionRollup),
		store:   store,
	}
}

func (r *Recorder) rollupFor(sessionID string) *SessionRollup {
	roll, ok := r.rollups[sessionID]
	if !ok {
		roll = &SessionRollup{SessionID: sessionID, AggregateCost: decimal.Zero, CacheSavings: decimal.Zero}
		r.rollups[sessionID] = roll
	}
	return roll
}

// Record appends a CostEntry, updates the session rollup, and best-effort
// persists both to the durable store. Out-of-order arrival is tolerated:
// the rollup only ever accumulates, it never needs entries in timestamp
// order.
func (r *Recorder) Record(e Entry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.Cached {
		e.Cost = decimal.Zero
	}

	r.mu.Lock()
	r.entries = append(r.entries, e)
	roll := r.rollupFor(e.SessionID)
	roll.AggregateCost = roll.AggregateCost.Add(e.Cost)
	if e.Cached {
		roll.CacheSavings = roll.CacheSavings.Add(e.CounterfactualCost)
		switch e.Service {
		case ServiceLLM:
			if e.Operation == "semantic" {
				roll.CacheHitLLMSemantic++
			} else {
				roll.CacheHitLLMExact++
			}
		case ServiceTTS:
			roll.CacheHitTTS++
		}
	}
	rollSnapshot := *roll
	r.mu.Unlock()

	if r.store != nil {
		_ = r.store.InsertCostEntry(e)
		_ = r.store.UpsertSessionMetrics(&rollSnapshot)
	}
}

// ObserveStageLatency feeds one stage's latency sample into the session's
// running mean via the Welford recurrence.
func (r *Recorder) ObserveStageLatency(sessionID, stage string, ms float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	roll := r.rollupFor(sessionID)
	i, ok := map[string]int{"asr": 0, "llm": 1, "translate": 2, "tts": 3, "total": 4}[stage]
	if !ok {
		return
	}
	roll.nLatency[i]++
	n := float64(roll.nLatency[i])
	switch stage {
	case "asr":
		roll.meanASRMs += (ms - roll.meanASRMs) / n
	case "llm":
		roll.meanLLMMs += (ms - roll.meanLLMMs) / n
	case "translate":
		roll.meanTranslateMs += (ms - roll.meanTranslateMs) / n
	case "tts":
		roll.meanTTSMs += (ms - roll.meanTTSMs) / n
	case "total":
		roll.meanTotalMs += (ms - roll.meanTotalMs) / n
	}
}

// ObserveASRConfidence feeds one turn's ASR confidence into the session's
// running-mean confidence.
func (r *Recorder) ObserveASRConfidence(sessionID string, confidence float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	roll := r.rollupFor(sessionID)
	roll.nConfidence++
	roll.meanASRConfidence += (confidence - roll.meanASRConfidence) / float64(roll.nConfidence)
}

// RecordGuardrailViolation bumps the per-layer violation counter.
func (r *Recorder) RecordGuardrailViolation(sessionID string, layer int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	roll := r.rollupFor(sessionID)
	switch layer {
	case 1:
		roll.GuardrailViolationsL1++
	case 2:
		roll.GuardrailViolationsL2++
	case 3:
		roll.GuardrailViolationsL3++
	}
}

// RecordTurnOutcome increments TotalTurns and the matching terminal-status
// counter, maintaining the invariant total_turns = successful + failed +
// interrupted.
func (r *Recorder) RecordTurnOutcome(sessionID string, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	roll := r.rollupFor(sessionID)
	roll.TotalTurns++
	switch status {
	case "successful":
		roll.Successful++
	case "failed":
		roll.Failed++
	case "interrupted":
		roll.Interrupted++
	}
}

// Snapshot returns the session's rollup (zero value if the session has
// recorded nothing yet) plus latency means for the `GET
// /sessions/{id}/metrics` RPC.
func (r *Recorder) Snapshot(sessionID string) SessionRollup {
	r.mu.Lock()
	defer r.mu.Unlock()
	if roll, ok := r.rollups[sessionID]; ok {
		return *roll
	}
	return SessionRollup{SessionID: sessionID}
}

// MeanLatencies exposes the Welford means for reporting without leaking the
// unexported fields directly.
func (s SessionRollup) MeanLatencies() (asr, llm, translate, tts, total, asrConfidence float64) {
	return s.meanASRMs, s.meanLLMMs, s.meanTranslateMs, s.meanTTSMs, s.meanTotalMs, s.meanASRConfidence
}

// CostBreakdown summarizes a session's entries for `GET
// /sessions/{id}/costs`.
type CostBreakdown struct {
	TotalCostUSD       decimal.Decimal
	ByService          map[Service]decimal.Decimal
	ByProvider         map[string]decimal.Decimal
	TotalEntries       int
	CacheSavingsUSD    decimal.Decimal
	OptimizationLevel  string
}

// Breakdown computes the §6 cost-RPC response from recorded entries.
func (r *Recorder) Breakdown(sessionID string) CostBreakdown {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := CostBreakdown{
		TotalCostUSD: decimal.Zero,
		ByService:    make(map[Service]decimal.Decimal),
		ByProvider:   make(map[string]decimal.Decimal),
	}
	roll := r.rollups[sessionID]
	if roll != nil {
		out.CacheSavingsUSD = roll.CacheSavings
		out.TotalCostUSD = roll.AggregateCost
	}
	for _, e := range r.entries {
		if e.SessionID != sessionID {
			continue
		}
		out.TotalEntries++
		out.ByService[e.Service] = out.ByService[e.Service].Add(e.Cost)
		out.ByProvider[e.Provider] = out.ByProvider[e.Provider].Add(e.Cost)
		out.OptimizationLevel = e.OptimizationTier
	}
	return out
}
