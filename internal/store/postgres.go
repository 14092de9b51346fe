package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is the pgx-backed repository implementation, adapted from
// the teacher's memory.PostgresStore: pgxpool handle, an initSchema DDL
// runner executed once at construction, one table per §6 entity with
// (session_id, created_at) composite indexes and indexes on the
// categorical columns the cost/violation RPCs filter on.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	s := &PostgresStore{pool: pool}
	if err := s.seedBuiltinPrompts(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			optimization_tier TEXT NOT NULL,
			target_language TEXT NOT NULL,
			configuration_id TEXT,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_activity_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS turns (
			turn_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(session_id),
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ,
			status TEXT NOT NULL,
			interrupt_reason TEXT,
			asr_latency_ms BIGINT NOT NULL DEFAULT 0,
			llm_latency_ms BIGINT NOT NULL DEFAULT 0,
			translate_latency_ms BIGINT NOT NULL DEFAULT 0,
			tts_latency_ms BIGINT NOT NULL DEFAULT 0,
			total_latency_ms BIGINT NOT NULL DEFAULT 0,
			transcript_text TEXT,
			response_text TEXT,
			translated_text TEXT,
			audio_ref TEXT,
			guardrail_safe BOOLEAN NOT NULL DEFAULT false
		);`,
		`CREATE INDEX IF NOT EXISTS idx_turns_session_started ON turns (session_id, started_at);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			turn_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session_created ON messages (session_id, created_at);`,
		`CREATE TABLE IF NOT EXISTS guardrail_violations (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			turn_id TEXT NOT NULL,
			layer SMALLINT NOT NULL,
			rule_id TEXT NOT NULL,
			severity TEXT NOT NULL,
			redacted_input TEXT,
			redacted_output TEXT,
			safe_fallback TEXT,
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_violations_session_created ON guardrail_violations (session_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_violations_severity ON guardrail_violations (severity);`,
		`CREATE TABLE IF NOT EXISTS cost_entries (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			turn_id TEXT NOT NULL,
			service TEXT NOT NULL,
			provider TEXT NOT NULL,
			operation TEXT NOT NULL,
			units NUMERIC(16,6) NOT NULL DEFAULT 0,
			unit_type TEXT NOT NULL,
			cost NUMERIC(10,6) NOT NULL DEFAULT 0,
			cached BOOLEAN NOT NULL DEFAULT false,
			optimization_tier TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_cost_entries_session_created ON cost_entries (session_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_cost_entries_service ON cost_entries (service);`,
		`CREATE INDEX IF NOT EXISTS idx_cost_entries_provider ON cost_entries (provider);`,
		`CREATE TABLE IF NOT EXISTS session_metrics (
			session_id TEXT PRIMARY KEY,
			total_turns INT NOT NULL DEFAULT 0,
			successful INT NOT NULL DEFAULT 0,
			failed INT NOT NULL DEFAULT 0,
			interrupted INT NOT NULL DEFAULT 0,
			mean_asr_ms DOUBLE PRECISION NOT NULL DEFAULT 0,
			mean_llm_ms DOUBLE PRECISION NOT NULL DEFAULT 0,
			mean_translate_ms DOUBLE PRECISION NOT NULL DEFAULT 0,
			mean_tts_ms DOUBLE PRECISION NOT NULL DEFAULT 0,
			mean_total_ms DOUBLE PRECISION NOT NULL DEFAULT 0,
			cache_hit_llm_exact INT NOT NULL DEFAULT 0,
			cache_hit_llm_semantic INT NOT NULL DEFAULT 0,
			cache_hit_tts INT NOT NULL DEFAULT 0,
			guardrail_violations_l1 INT NOT NULL DEFAULT 0,
			guardrail_violations_l2 INT NOT NULL DEFAULT 0,
			guardrail_violations_l3 INT NOT NULL DEFAULT 0,
			aggregate_cost NUMERIC(10,6) NOT NULL DEFAULT 0,
			cache_savings NUMERIC(10,6) NOT NULL DEFAULT 0,
			mean_asr_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS user_feedback (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			rating SMALLINT NOT NULL,
			rating_type TEXT NOT NULL,
			comment TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_feedback_session_created ON user_feedback (session_id, created_at);`,
		`CREATE TABLE IF NOT EXISTS system_prompts (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			text TEXT NOT NULL,
			built_in BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS session_configurations (
			id TEXT PRIMARY KEY,
			owner TEXT NOT NULL,
			name TEXT NOT NULL,
			llm_provider TEXT,
			llm_model TEXT,
			tts_provider TEXT,
			tts_voice_id TEXT,
			optimization_tier TEXT NOT NULL,
			target_language TEXT NOT NULL,
			rag_enabled BOOLEAN NOT NULL DEFAULT false,
			system_prompt_id TEXT,
			is_default BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_session_configs_owner_default
			ON session_configurations (owner) WHERE is_default;`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) seedBuiltinPrompts(ctx context.Context) error {
	for _, p := range builtinSystemPrompts() {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO system_prompts (id, name, text, built_in, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6) ON CONFLICT (id) DO NOTHING`,
			p.ID, p.Name, p.Text, p.BuiltIn, p.CreatedAt, p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("seed system prompt %s: %w", p.ID, err)
		}
	}
	return nil
}

func (s *PostgresStore) UpsertSession(ctx context.Context, row SessionRow) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (session_id, optimization_tier, target_language, configuration_id, status, created_at, last_activity_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 ON CONFLICT (session_id) DO UPDATE SET
		   optimization_tier=$2, target_language=$3, configuration_id=$4, status=$5, last_activity_at=$7`,
		row.SessionID, row.OptimizationTier, row.TargetLanguage, nullable(row.ConfigurationID), row.Status, row.CreatedAt, row.LastActivityAt)
	return err
}

func (s *PostgresStore) GetSession(ctx context.Context, sessionID string) (SessionRow, error) {
	var row SessionRow
	var configID *string
	err := s.pool.QueryRow(ctx,
		`SELECT session_id, optimization_tier, target_language, configuration_id, status, created_at, last_activity_at
		 FROM sessions WHERE session_id=$1`, sessionID).
		Scan(&row.SessionID, &row.OptimizationTier, &row.TargetLanguage, &configID, &row.Status, &row.CreatedAt, &row.LastActivityAt)
	if err == pgx.ErrNoRows {
		return SessionRow{}, ErrNotFound
	}
	if err != nil {
		return SessionRow{}, err
	}
	if configID != nil {
		row.ConfigurationID = *configID
	}
	return row, nil
}

func (s *PostgresStore) InsertTurn(ctx context.Context, row TurnRow) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO turns (turn_id, session_id, started_at, status, transcript_text, response_text, translated_text, audio_ref, guardrail_safe)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 ON CONFLICT (turn_id) DO NOTHING`,
		row.TurnID, row.SessionID, row.StartedAt, row.Status, row.TranscriptText, row.ResponseText, row.TranslatedText, row.AudioRef, row.GuardrailSafe)
	return err
}

func (s *PostgresStore) UpdateTurn(ctx context.Context, row TurnRow) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE turns SET finished_at=$2, status=$3, interrupt_reason=$4,
		   asr_latency_ms=$5, llm_latency_ms=$6, translate_latency_ms=$7, tts_latency_ms=$8, total_latency_ms=$9,
		   transcript_text=$10, response_text=$11, translated_text=$12, audio_ref=$13, guardrail_safe=$14
		 WHERE turn_id=$1`,
		row.TurnID, row.FinishedAt, row.Status, nullable(row.InterruptReason),
		row.ASRLatencyMs, row.LLMLatencyMs, row.TranslateLatencyMs, row.TTSLatencyMs, row.TotalLatencyMs,
		row.TranscriptText, row.ResponseText, row.TranslatedText, row.AudioRef, row.GuardrailSafe)
	return err
}

func (s *PostgresStore) InsertMessage(ctx context.Context, row MessageRow) error {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO messages (id, session_id, turn_id, role, content, created_at) VALUES ($1,$2,$3,$4,$5,$6)`,
		row.ID, row.SessionID, row.TurnID, row.Role, row.Content, row.CreatedAt)
	return err
}

func (s *PostgresStore) InsertViolation(ctx context.Context, row ViolationRow) error {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO guardrail_violations (id, session_id, turn_id, layer, rule_id, severity, redacted_input, redacted_output, safe_fallback, metadata, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		row.ID, row.SessionID, row.TurnID, row.Layer, row.RuleID, row.Severity, row.RedactedInput, row.RedactedOutput, row.SafeFallback, row.Metadata, row.CreatedAt)
	return err
}

func (s *PostgresStore) ListViolations(ctx context.Context, sessionID string) ([]ViolationRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, turn_id, layer, rule_id, severity, redacted_input, redacted_output, safe_fallback, created_at
		 FROM guardrail_violations WHERE session_id=$1 ORDER BY created_at`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ViolationRow
	for rows.Next() {
		var v ViolationRow
		if err := rows.Scan(&v.ID, &v.SessionID, &v.TurnID, &v.Layer, &v.RuleID, &v.Severity, &v.RedactedInput, &v.RedactedOutput, &v.SafeFallback, &v.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *PostgresStore) InsertCostEntry(ctx context.Context, row CostEntryRow) error {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO cost_entries (id, session_id, turn_id, service, provider, operation, units, unit_type, cost, cached, optimization_tier, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		row.ID, row.SessionID, row.TurnID, row.Service, row.Provider, row.Operation, row.Units, row.UnitType, row.Cost, row.Cached, row.OptimizationTier, row.CreatedAt)
	return err
}

func (s *PostgresStore) ListCostEntries(ctx context.Context, sessionID string) ([]CostEntryRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, turn_id, service, provider, operation, units, unit_type, cost, cached, optimization_tier, created_at
		 FROM cost_entries WHERE session_id=$1 ORDER BY created_at`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CostEntryRow
	for rows.Next() {
		var c CostEntryRow
		if err := rows.Scan(&c.ID, &c.SessionID, &c.TurnID, &c.Service, &c.Provider, &c.Operation, &c.Units, &c.UnitType, &c.Cost, &c.Cached, &c.OptimizationTier, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpsertSessionMetrics(ctx context.Context, row SessionMetricsRow) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO session_metrics (session_id, total_turns, successful, failed, interrupted,
		   mean_asr_ms, mean_llm_ms, mean_translate_ms, mean_tts_ms, mean_total_ms,
		   cache_hit_llm_exact, cache_hit_llm_semantic, cache_hit_tts,
		   guardrail_violations_l1, guardrail_violations_l2, guardrail_violations_l3,
		   aggregate_cost, cache_savings, mean_asr_confidence, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,now())
		 ON CONFLICT (session_id) DO UPDATE SET
		   total_turns=$2, successful=$3, failed=$4, interrupted=$5,
		   mean_asr_ms=$6, mean_llm_ms=$7, mean_translate_ms=$8, mean_tts_ms=$9, mean_total_ms=$10,
		   cache_hit_llm_exact=$11, cache_hit_llm_semantic=$12, cache_hit_tts=$13,
		   guardrail_violations_l1=$14, guardrail_violations_l2=$15, guardrail_violations_l3=$16,
		   aggregate_cost=$17, cache_savings=$18, mean_asr_confidence=$19, updated_at=now()`,
		row.SessionID, row.TotalTurns, row.Successful, row.Failed, row.Interrupted,
		row.MeanASRMs, row.MeanLLMMs, row.MeanTranslateMs, row.MeanTTSMs, row.MeanTotalMs,
		row.CacheHitLLMExact, row.CacheHitLLMSemantic, row.CacheHitTTS,
		row.GuardrailViolationsL1, row.GuardrailViolationsL2, row.GuardrailViolationsL3,
		row.AggregateCost, row.CacheSavings, row.MeanASRConfidence)
	return err
}

func (s *PostgresStore) GetSessionMetrics(ctx context.Context, sessionID string) (SessionMetricsRow, error) {
	var row SessionMetricsRow
	err := s.pool.QueryRow(ctx,
		`SELECT session_id, total_turns, successful, failed, interrupted,
		   mean_asr_ms, mean_llm_ms, mean_translate_ms, mean_tts_ms, mean_total_ms,
		   cache_hit_llm_exact, cache_hit_llm_semantic, cache_hit_tts,
		   guardrail_violations_l1, guardrail_violations_l2, guardrail_violations_l3,
		   aggregate_cost, cache_savings, mean_asr_confidence, updated_at
		 FROM session_metrics WHERE session_id=$1`, sessionID).
		Scan(&row.SessionID, &row.TotalTurns, &row.Successful, &row.Failed, &row.Interrupted,
			&row.MeanASRMs, &row.MeanLLMMs, &row.MeanTranslateMs, &row.MeanTTSMs, &row.MeanTotalMs,
			&row.CacheHitLLMExact, &row.CacheHitLLMSemantic, &row.CacheHitTTS,
			&row.GuardrailViolationsL1, &row.GuardrailViolationsL2, &row.GuardrailViolationsL3,
			&row.AggregateCost, &row.CacheSavings, &row.MeanASRConfidence, &row.UpdatedAt)
	if err == pgx.ErrNoRows {
		return SessionMetricsRow{}, ErrNotFound
	}
	return row, err
}

func (s *PostgresStore) InsertFeedback(ctx context.Context, row FeedbackRow) error {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_feedback (id, session_id, rating, rating_type, comment, created_at) VALUES ($1,$2,$3,$4,$5,$6)`,
		row.ID, row.SessionID, row.Rating, row.RatingType, row.Comment, row.CreatedAt)
	return err
}

func (s *PostgresStore) ListSystemPrompts(ctx context.Context) ([]SystemPromptRow, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, text, built_in, created_at, updated_at FROM system_prompts ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SystemPromptRow
	for rows.Next() {
		var p SystemPromptRow
		if err := rows.Scan(&p.ID, &p.Name, &p.Text, &p.BuiltIn, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetSystemPrompt(ctx context.Context, id string) (SystemPromptRow, error) {
	var p SystemPromptRow
	err := s.pool.QueryRow(ctx, `SELECT id, name, text, built_in, created_at, updated_at FROM system_prompts WHERE id=$1`, id).
		Scan(&p.ID, &p.Name, &p.Text, &p.BuiltIn, &p.CreatedAt, &p.UpdatedAt)
	if err == pgx.ErrNoRows {
		return SystemPromptRow{}, ErrNotFound
	}
	return p, err
}

func (s *PostgresStore) PutSystemPrompt(ctx context.Context, row SystemPromptRow) error {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO system_prompts (id, name, text, built_in, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,now(),now())
		 ON CONFLICT (id) DO UPDATE SET name=$2, text=$3, updated_at=now()`,
		row.ID, row.Name, row.Text, row.BuiltIn)
	return err
}

func (s *PostgresStore) DeleteSystemPrompt(ctx context.Context, id string) error {
	existing, err := s.GetSystemPrompt(ctx, id)
	if err != nil {
		return err
	}
	if existing.BuiltIn {
		return ErrBuiltinDelete
	}
	_, err = s.pool.Exec(ctx, `DELETE FROM system_prompts WHERE id=$1`, id)
	return err
}

func (s *PostgresStore) ListSessionConfigurations(ctx context.Context, owner string) ([]SessionConfigurationRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, owner, name, llm_provider, llm_model, tts_provider, tts_voice_id, optimization_tier, target_language, rag_enabled, system_prompt_id, is_default, created_at, updated_at
		 FROM session_configurations WHERE owner=$1 ORDER BY created_at`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SessionConfigurationRow
	for rows.Next() {
		var c SessionConfigurationRow
		if err := rows.Scan(&c.ID, &c.Owner, &c.Name, &c.LLMProvider, &c.LLMModel, &c.TTSProvider, &c.TTSVoiceID, &c.OptimizationTier, &c.TargetLanguage, &c.RAGEnabled, &c.SystemPromptID, &c.IsDefault, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetSessionConfiguration(ctx context.Context, id string) (SessionConfigurationRow, error) {
	var c SessionConfigurationRow
	err := s.pool.QueryRow(ctx,
		`SELECT id, owner, name, llm_provider, llm_model, tts_provider, tts_voice_id, optimization_tier, target_language, rag_enabled, system_prompt_id, is_default, created_at, updated_at
		 FROM session_configurations WHERE id=$1`, id).
		Scan(&c.ID, &c.Owner, &c.Name, &c.LLMProvider, &c.LLMModel, &c.TTSProvider, &c.TTSVoiceID, &c.OptimizationTier, &c.TargetLanguage, &c.RAGEnabled, &c.SystemPromptID, &c.IsDefault, &c.CreatedAt, &c.UpdatedAt)
	if err == pgx.ErrNoRows {
		return SessionConfigurationRow{}, ErrNotFound
	}
	return c, err
}

func (s *PostgresStore) GetDefaultSessionConfiguration(ctx context.Context, owner string) (SessionConfigurationRow, error) {
	var c SessionConfigurationRow
	err := s.pool.QueryRow(ctx,
		`SELECT id, owner, name, llm_provider, llm_model, tts_provider, tts_voice_id, optimization_tier, target_language, rag_enabled, system_prompt_id, is_default, created_at, updated_at
		 FROM session_configurations WHERE owner=$1 AND is_default LIMIT 1`, owner).
		Scan(&c.ID, &c.Owner, &c.Name, &c.LLMProvider, &c.LLMModel, &c.TTSProvider, &c.TTSVoiceID, &c.OptimizationTier, &c.TargetLanguage, &c.RAGEnabled, &c.SystemPromptID, &c.IsDefault, &c.CreatedAt, &c.UpdatedAt)
	if err == pgx.ErrNoRows {
		return SessionConfigurationRow{}, ErrNotFound
	}
	return c, err
}

// PutSessionConfiguration relies on the partial unique index
// idx_session_configs_owner_default to enforce at-most-one-default; when
// row.IsDefault is set we first clear any existing default for the owner
// inside the same statement batch so the unique index never conflicts.
func (s *PostgresStore) PutSessionConfiguration(ctx context.Context, row SessionConfigurationRow) error {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if row.IsDefault {
		if _, err := tx.Exec(ctx, `UPDATE session_configurations SET is_default=false WHERE owner=$1 AND id<>$2`, row.Owner, row.ID); err != nil {
			return err
		}
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO session_configurations (id, owner, name, llm_provider, llm_model, tts_provider, tts_voice_id, optimization_tier, target_language, rag_enabled, system_prompt_id, is_default, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,now(),now())
		 ON CONFLICT (id) DO UPDATE SET
		   name=$3, llm_provider=$4, llm_model=$5, tts_provider=$6, tts_voice_id=$7, optimization_tier=$8,
		   target_language=$9, rag_enabled=$10, system_prompt_id=$11, is_default=$12, updated_at=now()`,
		row.ID, row.Owner, row.Name, row.LLMProvider, row.LLMModel, row.TTSProvider, row.TTSVoiceID,
		row.OptimizationTier, row.TargetLanguage, row.RAGEnabled, row.SystemPromptID, row.IsDefault)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) DeleteSessionConfiguration(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM session_configurations WHERE id=$1`, id)
	return err
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
