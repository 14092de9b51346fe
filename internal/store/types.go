// Package store implements the persisted-state layout of §6: one
// repository per table (sessions, turns, messages, guardrail_violations,
// cost_entries, session_metrics, user_feedback, system_prompts,
// session_configurations), each serializing writes per record while
// tolerating eventually-consistent reads, per §5's resource model.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SessionRow is the `sessions` table projection.
type SessionRow struct {
	SessionID        string
	OptimizationTier string
	TargetLanguage   string
	ConfigurationID  string
	Status           string
	CreatedAt        time.Time
	LastActivityAt   time.Time
}

// TurnRow is the `turns` table projection.
type TurnRow struct {
	TurnID          string
	SessionID       string
	StartedAt       time.Time
	FinishedAt      time.Time
	Status          string
	InterruptReason string
	ASRLatencyMs    int64
	LLMLatencyMs    int64
	TranslateLatencyMs int64
	TTSLatencyMs    int64
	TotalLatencyMs  int64
	TranscriptText  string
	ResponseText    string
	TranslatedText  string
	AudioRef        string
	GuardrailSafe   bool
}

// MessageRow is the `messages` table projection — the prompt/response text
// attributed to a turn, kept separately from TurnRow so a turn's transcript
// and generated text can be queried/filtered independently of turn metadata.
type MessageRow struct {
	ID        string
	SessionID string
	TurnID    string
	Role      string
	Content   string
	CreatedAt time.Time
}

// ViolationRow is the `guardrail_violations` table projection.
type ViolationRow struct {
	ID             string
	SessionID      string
	TurnID         string
	Layer          int
	RuleID         string
	Severity       string
	RedactedInput  string
	RedactedOutput string
	SafeFallback   string
	Metadata       map[string]string
	CreatedAt      time.Time
}

// CostEntryRow is the `cost_entries` table projection.
type CostEntryRow struct {
	ID               string
	SessionID        string
	TurnID           string
	Service          string
	Provider         string
	Operation        string
	Units            decimal.Decimal
	UnitType         string
	Cost             decimal.Decimal
	Cached           bool
	OptimizationTier string
	CreatedAt        time.Time
}

// SessionMetricsRow is the `session_metrics` rollup table projection; unique
// on SessionID.
type SessionMetricsRow struct {
	SessionID             string
	TotalTurns            int
	Successful            int
	Failed                int
	Interrupted           int
	MeanASRMs             float64
	MeanLLMMs             float64
	MeanTranslateMs       float64
	MeanTTSMs             float64
	MeanTotalMs           float64
	CacheHitLLMExact      int
	CacheHitLLMSemantic   int
	CacheHitTTS           int
	GuardrailViolationsL1 int
	GuardrailViolationsL2 int
	GuardrailViolationsL3 int
	AggregateCost         decimal.Decimal
	CacheSavings          decimal.Decimal
	MeanASRConfidence     float64
	UpdatedAt             time.Time
}

// FeedbackRow is the `user_feedback` table projection.
type FeedbackRow struct {
	ID         string
	SessionID  string
	Rating     int
	RatingType string
	Comment    string
	CreatedAt  time.Time
}

// SystemPromptRow is the `system_prompts` table projection.
type SystemPromptRow struct {
	ID        string
	Name      string
	Text      string
	BuiltIn   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SessionConfigurationRow is the `session_configurations` table projection.
type SessionConfigurationRow struct {
	ID               string
	Owner            string
	Name             string
	LLMProvider      string
	LLMModel         string
	TTSProvider      string
	TTSVoiceID       string
	OptimizationTier string
	TargetLanguage   string
	RAGEnabled       bool
	SystemPromptID   string
	IsDefault        bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Store is the full repository surface the engine depends on. A nil *Store
// handle is never passed; instead NewStore always returns at least the
// in-memory implementation so the cost recorder and HTTP RPCs have a
// uniform, always-present durable seam per DESIGN NOTES' "inject, don't
// singleton" guidance.
type Store interface {
	UpsertSession(ctx context.Context, row SessionRow) error
	GetSession(ctx context.Context, sessionID string) (SessionRow, error)

	InsertTurn(ctx context.Context, row TurnRow) error
	UpdateTurn(ctx context.Context, row TurnRow) error

	InsertMessage(ctx context.Context, row MessageRow) error

	InsertViolation(ctx context.Context, row ViolationRow) error
	ListViolations(ctx context.Context, sessionID string) ([]ViolationRow, error)

	InsertCostEntry(ctx context.Context, row CostEntryRow) error
	ListCostEntries(ctx context.Context, sessionID string) ([]CostEntryRow, error)

	UpsertSessionMetrics(ctx context.Context, row SessionMetricsRow) error
	GetSessionMetrics(ctx context.Context, sessionID string) (SessionMetricsRow, error)

	InsertFeedback(ctx context.Context, row FeedbackRow) error

	ListSystemPrompts(ctx context.Context) ([]SystemPromptRow, error)
	GetSystemPrompt(ctx context.Context, id string) (SystemPromptRow, error)
	PutSystemPrompt(ctx context.Context, row SystemPromptRow) error
	DeleteSystemPrompt(ctx context.Context, id string) error

	ListSessionConfigurations(ctx context.Context, owner string) ([]SessionConfigurationRow, error)
	GetSessionConfiguration(ctx context.Context, id string) (SessionConfigurationRow, error)
	GetDefaultSessionConfiguration(ctx context.Context, owner string) (SessionConfigurationRow, error)
	PutSessionConfiguration(ctx context.Context, row SessionConfigurationRow) error
	DeleteSessionConfiguration(ctx context.Context, id string) error

	Close() error
}

// ErrNotFound is returned by single-row lookups that miss.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "store: not found" }
