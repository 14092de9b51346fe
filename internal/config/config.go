// Package config loads runtime settings for the turn engine from environment
// variables. Absence of an optional key disables the corresponding feature
// rather than failing startup; only the settings the engine cannot safely
// guess at (auth secret, enabled provider credentials) are required.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the turn engine.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	AllowAnyOrigin   bool

	AuthHeaderName string
	AuthSecret     string
	// SecretsKey is loaded from the environment; nothing in the module reads
	// it after Load, so no credential or secret is encrypted with it.
	SecretsKey string

	SessionInactivityTimeout time.Duration
	TurnDeadline             time.Duration

	DatabaseURL string

	CacheBackendURL string
	// CacheTTLOverrideSeconds is loaded from the environment but not applied:
	// every optimization tier keeps its own cache TTL whatever its value.
	// optimization.ApplyTTLOverride implements the override and is called
	// only from its test.
	CacheTTLOverrideSeconds int
	SemanticCacheMaxScan    int

	RequestsPerMinute int
	RequestsPerHour   int

	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryCapDelay    time.Duration

	SarvamAPIKey     string
	SarvamBaseURL    string
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	AnthropicAPIKey  string
	AnthropicBaseURL string
	ElevenLabsAPIKey string
	ElevenLabsBaseURL string

	DefaultLLMProvider string
	DefaultTTSProvider string
	TTSFallbackProvider string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "turnengine"),
		AllowAnyOrigin:   false,

		AuthHeaderName: envOrDefault("APP_AUTH_HEADER", "X-Api-Key"),
		AuthSecret:     trimSpace(os.Getenv("APP_AUTH_SECRET")),
		SecretsKey:     trimSpace(os.Getenv("APP_SECRETS_KEY")),

		DatabaseURL: trimSpace(os.Getenv("DATABASE_URL")),

		CacheBackendURL: trimSpace(os.Getenv("CACHE_BACKEND_URL")),

		SarvamAPIKey:       trimSpace(os.Getenv("SARVAM_API_KEY")),
		SarvamBaseURL:      envOrDefault("SARVAM_BASE_URL", "https://api.sarvam.ai"),
		OpenAIAPIKey:       trimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIBaseURL:      envOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		AnthropicAPIKey:    trimSpace(os.Getenv("ANTHROPIC_API_KEY")),
		AnthropicBaseURL:   envOrDefault("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
		ElevenLabsAPIKey:   trimSpace(os.Getenv("ELEVENLABS_API_KEY")),
		ElevenLabsBaseURL:  envOrDefault("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io"),
		DefaultLLMProvider: envOrDefault("DEFAULT_LLM_PROVIDER", "sarvam"),
		DefaultTTSProvider: envOrDefault("DEFAULT_TTS_PROVIDER", "sarvam"),
		TTSFallbackProvider: envOrDefault("TTS_FALLBACK_PROVIDER", "elevenlabs"),

		ShutdownTimeout:          15 * time.Second,
		SessionInactivityTimeout: 2 * time.Minute,
		TurnDeadline:             8 * time.Second,
		SemanticCacheMaxScan:     100,
		RequestsPerMinute:        120,
		RequestsPerHour:          3000,
		RetryMaxAttempts:         3,
		RetryBaseDelay:           300 * time.Millisecond,
		RetryCapDelay:            5 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.TurnDeadline, err = durationFromEnv("APP_TURN_DEADLINE", cfg.TurnDeadline)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.CacheTTLOverrideSeconds, err = intFromEnv("CACHE_TTL_OVERRIDE_SECONDS", cfg.CacheTTLOverrideSeconds)
	if err != nil {
		return Config{}, err
	}
	cfg.SemanticCacheMaxScan, err = intFromEnv("SEMANTIC_CACHE_MAX_SCAN", cfg.SemanticCacheMaxScan)
	if err != nil {
		return Config{}, err
	}
	cfg.RequestsPerMinute, err = intFromEnv("APP_REQUESTS_PER_MINUTE", cfg.RequestsPerMinute)
	if err != nil {
		return Config{}, err
	}
	cfg.RequestsPerHour, err = intFromEnv("APP_REQUESTS_PER_HOUR", cfg.RequestsPerHour)
	if err != nil {
		return Config{}, err
	}
	cfg.RetryMaxAttempts, err = intFromEnv("APP_RETRY_MAX_ATTEMPTS", cfg.RetryMaxAttempts)
	if err != nil {
		return Config{}, err
	}
	cfg.RetryBaseDelay, err = durationFromEnv("APP_RETRY_BASE_DELAY", cfg.RetryBaseDelay)
	if err != nil {
		return Config{}, err
	}
	cfg.RetryCapDelay, err = durationFromEnv("APP_RETRY_CAP_DELAY", cfg.RetryCapDelay)
	if err != nil {
		return Config{}, err
	}

	if strings.TrimSpace(cfg.AuthSecret) == "" {
		return Config{}, fmt.Errorf("APP_AUTH_SECRET is required")
	}
	if cfg.SessionInactivityTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if cfg.TurnDeadline < time.Second {
		return Config{}, fmt.Errorf("APP_TURN_DEADLINE must be at least 1s")
	}
	if cfg.RetryMaxAttempts <= 0 {
		return Config{}, fmt.Errorf("APP_RETRY_MAX_ATTEMPTS must be positive")
	}
	if cfg.SemanticCacheMaxScan <= 0 || cfg.SemanticCacheMaxScan > 100 {
		return Config{}, fmt.Errorf("SEMANTIC_CACHE_MAX_SCAN must be in (0, 100]")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimSpace(v string) string {
	return strings.TrimSpace(v)
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimSpace(os.Getenv(key)))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
