package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/sarvam-ai/turnengine/internal/cost"
)

// CostAdapter satisfies cost.Store against the durable repository surface,
// translating between the cost package's in-process Entry/SessionRollup
// shapes and this package's row projections. Kept separate from Store
// itself so the cost package never needs to import store (avoiding a
// dependency cycle) while store still owns the table shapes.
type CostAdapter struct {
	Backing Store
}

func NewCostAdapter(backing Store) *CostAdapter {
	return &CostAdapter{Backing: backing}
}

func (a *CostAdapter) InsertCostEntry(e cost.Entry) error {
	return a.Backing.InsertCostEntry(context.Background(), CostEntryRow{
		ID:               uuid.NewString(),
		SessionID:        e.SessionID,
		TurnID:           e.TurnID,
		Service:          string(e.Service),
		Provider:         e.Provider,
		Operation:        e.Operation,
		Units:            e.Units,
		UnitType:         string(e.UnitType),
		Cost:             e.Cost,
		Cached:           e.Cached,
		OptimizationTier: e.OptimizationTier,
		CreatedAt:        e.Timestamp,
	})
}

func (a *CostAdapter) UpsertSessionMetrics(roll *cost.SessionRollup) error {
	asr, llm, translate, tts, total, confidence := roll.MeanLatencies()
	return a.Backing.UpsertSessionMetrics(context.Background(), SessionMetricsRow{
		SessionID:             roll.SessionID,
		TotalTurns:            roll.TotalTurns,
		Successful:            roll.Successful,
		Failed:                roll.Failed,
		Interrupted:           roll.Interrupted,
		MeanASRMs:             asr,
		MeanLLMMs:             llm,
		MeanTranslateMs:       translate,
		MeanTTSMs:             tts,
		MeanTotalMs:           total,
		CacheHitLLMExact:      roll.CacheHitLLMExact,
		CacheHitLLMSemantic:   roll.CacheHitLLMSemantic,
		CacheHitTTS:           roll.CacheHitTTS,
		GuardrailViolationsL1: roll.GuardrailViolationsL1,
		GuardrailViolationsL2: roll.GuardrailViolationsL2,
		GuardrailViolationsL3: roll.GuardrailViolationsL3,
		AggregateCost:         roll.AggregateCost,
		CacheSavings:          roll.CacheSavings,
		MeanASRConfidence:     confidence,
	})
}
