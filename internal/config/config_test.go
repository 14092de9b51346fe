package config

import "testing"

func TestLoadRequiresAuthSecret(t *testing.T) {
	setCoreEnvEmpty(t)

	if _, err := Load(); err == nil {
		t.Fatalf("Load() expected error when APP_AUTH_SECRET is unset")
	}
}

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_AUTH_SECRET", "test-secret")
	t.Setenv("APP_BIND_ADDR", ":9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BindAddr != ":9090" {
		t.Fatalf("BindAddr = %q, want :9090", cfg.BindAddr)
	}
	if cfg.DefaultLLMProvider != "sarvam" {
		t.Fatalf("DefaultLLMProvider = %q, want sarvam", cfg.DefaultLLMProvider)
	}
	if cfg.RetryMaxAttempts != 3 {
		t.Fatalf("RetryMaxAttempts = %d, want 3", cfg.RetryMaxAttempts)
	}
	if cfg.SemanticCacheMaxScan != 100 {
		t.Fatalf("SemanticCacheMaxScan = %d, want 100", cfg.SemanticCacheMaxScan)
	}
}

func TestLoadRejectsSemanticCacheMaxScanOutOfRange(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_AUTH_SECRET", "test-secret")
	t.Setenv("SEMANTIC_CACHE_MAX_SCAN", "101")

	if _, err := Load(); err == nil {
		t.Fatalf("Load() expected error for SEMANTIC_CACHE_MAX_SCAN=101")
	}
}

func TestLoadRejectsShortSessionInactivityTimeout(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_AUTH_SECRET", "test-secret")
	t.Setenv("APP_SESSION_INACTIVITY_TIMEOUT", "1s")

	if _, err := Load(); err == nil {
		t.Fatalf("Load() expected error for sub-5s inactivity timeout")
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_SESSION_INACTIVITY_TIMEOUT",
		"APP_TURN_DEADLINE",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"APP_AUTH_SECRET",
		"APP_AUTH_HEADER",
		"APP_SECRETS_KEY",
		"DATABASE_URL",
		"CACHE_BACKEND_URL",
		"CACHE_TTL_OVERRIDE_SECONDS",
		"SEMANTIC_CACHE_MAX_SCAN",
		"APP_REQUESTS_PER_MINUTE",
		"APP_REQUESTS_PER_HOUR",
		"APP_RETRY_MAX_ATTEMPTS",
		"APP_RETRY_BASE_DELAY",
		"APP_RETRY_CAP_DELAY",
		"SARVAM_API_KEY",
		"OPENAI_API_KEY",
		"ANTHROPIC_API_KEY",
		"ELEVENLABS_API_KEY",
		"DEFAULT_LLM_PROVIDER",
		"DEFAULT_TTS_PROVIDER",
		"TTS_FALLBACK_PROVIDER",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
