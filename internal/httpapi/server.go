// Package httpapi exposes the turn-stream websocket and the one-shot RPC
// surface (§6) over chi, mirroring the teacher's router-composition style:
// one file per resource group, a thin Server holding every collaborator,
// constructed once at startup.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/sarvam-ai/turnengine/internal/config"
	"github.com/sarvam-ai/turnengine/internal/observability"
	"github.com/sarvam-ai/turnengine/internal/pipeline"
	"github.com/sarvam-ai/turnengine/internal/session"
	"github.com/sarvam-ai/turnengine/internal/store"
	"github.com/sarvam-ai/turnengine/internal/turn"
)

// authQueryParam lets a browser's WS upgrade (which cannot set a custom
// header) authenticate with the same pre-shared credential as a query
// parameter (§6).
const authQueryParam = "api_key"

type Server struct {
	cfg          config.Config
	sessions     *session.Manager
	fabric       *turn.Fabric
	orchestrator *pipeline.Orchestrator
	store        store.Store
	metrics      *observability.Metrics
	upgrader     websocket.Upgrader

	voiceCache voiceCatalogCache
}

func New(cfg config.Config, sessions *session.Manager, fabric *turn.Fabric, orchestrator *pipeline.Orchestrator, st store.Store, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:          cfg,
		sessions:     sessions,
		fabric:       fabric,
		orchestrator: orchestrator,
		store:        st,
		metrics:      metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Get("/turn", s.handleTurnWS)

		r.Get("/tts/providers", s.handleTTSProviders)
		r.Get("/tts/voices", s.handleTTSVoices)
		r.Post("/tts/voices/preview", s.handleTTSPreview)

		r.Get("/llm/providers", s.handleLLMProviders)
		r.Get("/llm/models", s.handleLLMModels)

		r.Get("/system-prompts", s.handleListSystemPrompts)
		r.Post("/system-prompts", s.handleCreateSystemPrompt)
		r.Get("/system-prompts/{id}", s.handleGetSystemPrompt)
		r.Put("/system-prompts/{id}", s.handleUpdateSystemPrompt)
		r.Delete("/system-prompts/{id}", s.handleDeleteSystemPrompt)

		r.Get("/config/sessions", s.handleListConfigurations)
		r.Post("/config/sessions", s.handleCreateConfiguration)
		r.Get("/config/sessions/default", s.handleGetDefaultConfiguration)
		r.Get("/config/sessions/{id}", s.handleGetConfiguration)
		r.Put("/config/sessions/{id}", s.handleUpdateConfiguration)
		r.Delete("/config/sessions/{id}", s.handleDeleteConfiguration)

		r.Get("/sessions/{id}/costs", s.handleSessionCosts)
		r.Get("/sessions/{id}/metrics", s.handleSessionMetrics)

		r.Post("/feedback", s.handleFeedback)
	})

	return r
}

// requireAuth enforces the pre-shared credential in cfg.AuthHeaderName for
// every protected route. A persistent WS connection may instead pass it as
// the authQueryParam query parameter, since a browser's WS upgrade request
// cannot set arbitrary headers.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := strings.TrimSpace(r.Header.Get(s.cfg.AuthHeaderName))
		if got == "" {
			got = strings.TrimSpace(r.URL.Query().Get(authQueryParam))
		}
		if got == "" || got != s.cfg.AuthSecret {
			respondError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid credential")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

// deadlineCtx is a small helper so handlers that call out to providers
// (voice preview, provider catalogs) don't hang past the server's own turn
// deadline budget.
func (s *Server) deadlineCtx(r *http.Request) (context.Context, context.CancelFunc) {
	d := s.cfg.TurnDeadline
	if d <= 0 {
		d = 8 * time.Second
	}
	return context.WithTimeout(r.Context(), d)
}
