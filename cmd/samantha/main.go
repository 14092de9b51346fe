package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sarvam-ai/turnengine/internal/config"
	"github.com/sarvam-ai/turnengine/internal/httpapi"
	"github.com/sarvam-ai/turnengine/internal/observability"
	"github.com/sarvam-ai/turnengine/internal/pipeline"
	"github.com/sarvam-ai/turnengine/internal/provider"
	"github.com/sarvam-ai/turnengine/internal/session"
	"github.com/sarvam-ai/turnengine/internal/store"
	"github.com/sarvam-ai/turnengine/internal/turn"
	"github.com/sarvam-ai/turnengine/internal/voiceregistry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	st, err := store.NewStore(runCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("store init failed: %v", err)
	}
	defer st.Close()

	sessions := session.NewManager(cfg.SessionInactivityTimeout)
	sessions.SetExpireHook(func(_ *session.Session) {
		metrics.SessionEvents.WithLabelValues("expired").Inc()
		metrics.ActiveSessions.Set(float64(sessions.ActiveCount()))
	})
	sessions.StartJanitor(runCtx, 5*time.Second)

	fabric := turn.NewFabric()

	llms := provider.NewLLMRegistry(cfg.DefaultLLMProvider, buildLLMClients(cfg)...)
	tts := buildTTS(cfg, metrics)

	seed, defaultVoice, primaryOrder := voiceregistry.DefaultCatalog()
	voices := voiceregistry.New(seed, defaultVoice, primaryOrder)

	orch := pipeline.New(sessions, fabric, st)
	orch.ASR = provider.NewSarvamASRClient(cfg.SarvamAPIKey, cfg.SarvamBaseURL, nil)
	orch.LLMs = llms
	orch.Translate = provider.NewSarvamTranslateClient(cfg.SarvamAPIKey, cfg.SarvamBaseURL, nil)
	orch.TTS = tts
	orch.Voices = voices
	orch.Metrics = metrics
	orch.DefaultTTSProvider = cfg.DefaultTTSProvider
	orch.FallbackTTSProvider = cfg.TTSFallbackProvider
	orch.TurnDeadline = cfg.TurnDeadline
	orch.RetryPolicy = provider.RetryPolicy{
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
		CapDelay:    cfg.RetryCapDelay,
	}

	api := httpapi.New(cfg, sessions, fabric, orch, st, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}

// buildLLMClients wires one LLMClient per provider with a configured API key.
func buildLLMClients(cfg config.Config) []provider.LLMClient {
	var clients []provider.LLMClient
	if strings.TrimSpace(cfg.SarvamAPIKey) != "" {
		clients = append(clients, provider.NewSarvamLLMClient(cfg.SarvamAPIKey, cfg.SarvamBaseURL, "sarvam-m", nil))
	}
	if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		clients = append(clients, provider.NewOpenAILLMClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, "gpt-4o-mini", nil))
	}
	if strings.TrimSpace(cfg.AnthropicAPIKey) != "" {
		clients = append(clients, provider.NewAnthropicLLMClient(cfg.AnthropicAPIKey, cfg.AnthropicBaseURL, "claude-3-5-haiku-20241022", nil))
	}
	return clients
}

// buildTTS wires the default and fallback TTS providers behind a FailoverTTS,
// falling back to whichever single provider has a configured key.
func buildTTS(cfg config.Config, metrics *observability.Metrics) provider.TTSClient {
	var primary, fallback provider.TTSClient
	if strings.TrimSpace(cfg.SarvamAPIKey) != "" {
		primary = provider.NewSarvamTTSClient(cfg.SarvamAPIKey, cfg.SarvamBaseURL, nil)
	}
	if strings.TrimSpace(cfg.ElevenLabsAPIKey) != "" {
		fallback = provider.NewElevenLabsTTSClient(cfg.ElevenLabsAPIKey, cfg.ElevenLabsBaseURL, nil)
	}
	if primary == nil {
		primary, fallback = fallback, nil
	}
	if primary == nil {
		return nil
	}
	if fallback == nil {
		return primary
	}
	return provider.NewFailoverTTS(primary, fallback, func() {
		metrics.ProviderErrors.WithLabelValues(cfg.DefaultTTSProvider, "fallback_triggered").Inc()
	})
}
