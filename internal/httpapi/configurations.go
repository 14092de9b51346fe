package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sarvam-ai/turnengine/internal/store"
)

// defaultOwner is used when a caller does not scope a configuration to a
// named owner; the single shared-secret auth model (§6) has no per-user
// principal of its own, so "owner" is caller-supplied, not derived from
// auth.
const defaultOwner = "default"

type sessionConfigDTO struct {
	ID               string    `json:"id"`
	Owner            string    `json:"owner"`
	Name             string    `json:"name"`
	LLMProvider      string    `json:"llm_provider"`
	LLMModel         string    `json:"llm_model"`
	TTSProvider      string    `json:"tts_provider"`
	TTSVoiceID       string    `json:"tts_voice_id"`
	OptimizationTier string    `json:"optimization_level"`
	TargetLanguage   string    `json:"target_language"`
	RAGEnabled       bool      `json:"rag_enabled"`
	SystemPromptID   string    `json:"system_prompt_id"`
	IsDefault        bool      `json:"is_default"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func configToDTO(row store.SessionConfigurationRow) sessionConfigDTO {
	return sessionConfigDTO{
		ID: row.ID, Owner: row.Owner, Name: row.Name, LLMProvider: row.LLMProvider, LLMModel: row.LLMModel,
		TTSProvider: row.TTSProvider, TTSVoiceID: row.TTSVoiceID, OptimizationTier: row.OptimizationTier,
		TargetLanguage: row.TargetLanguage, RAGEnabled: row.RAGEnabled, SystemPromptID: row.SystemPromptID,
		IsDefault: row.IsDefault, CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
	}
}

func ownerOf(r *http.Request) string {
	owner := strings.TrimSpace(r.URL.Query().Get("owner"))
	if owner == "" {
		return defaultOwner
	}
	return owner
}

func (s *Server) handleListConfigurations(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListSessionConfigurations(r.Context(), ownerOf(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	out := make([]sessionConfigDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, configToDTO(row))
	}
	respondJSON(w, http.StatusOK, map[string]any{"configurations": out})
}

func (s *Server) handleGetConfiguration(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	row, err := s.store.GetSessionConfiguration(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "configuration not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, configToDTO(row))
}

func (s *Server) handleGetDefaultConfiguration(w http.ResponseWriter, r *http.Request) {
	row, err := s.store.GetDefaultSessionConfiguration(r.Context(), ownerOf(r))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "no default configuration for owner")
			return
		}
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, configToDTO(row))
}

type sessionConfigRequest struct {
	Owner            string `json:"owner"`
	Name             string `json:"name"`
	LLMProvider      string `json:"llm_provider"`
	LLMModel         string `json:"llm_model"`
	TTSProvider      string `json:"tts_provider"`
	TTSVoiceID       string `json:"tts_voice_id"`
	OptimizationTier string `json:"optimization_level"`
	TargetLanguage   string `json:"target_language"`
	RAGEnabled       bool   `json:"rag_enabled"`
	SystemPromptID   string `json:"system_prompt_id"`
	IsDefault        bool   `json:"is_default"`
}

// clearExistingDefault enforces at-most-one-default-per-owner: when row is
// being saved with IsDefault set, every other configuration for the same
// owner currently marked default is flipped off first.
func (s *Server) clearExistingDefault(ctx context.Context, owner, keepID string) error {
	existing, err := s.store.ListSessionConfigurations(ctx, owner)
	if err != nil {
		return err
	}
	for _, row := range existing {
		if row.ID == keepID || !row.IsDefault {
			continue
		}
		row.IsDefault = false
		if err := s.store.PutSessionConfiguration(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) handleCreateConfiguration(w http.ResponseWriter, r *http.Request) {
	var req sessionConfigRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}
	owner := req.Owner
	if owner == "" {
		owner = defaultOwner
	}
	now := time.Now().UTC()
	row := store.SessionConfigurationRow{
		ID: uuid.NewString(), Owner: owner, Name: req.Name, LLMProvider: req.LLMProvider, LLMModel: req.LLMModel,
		TTSProvider: req.TTSProvider, TTSVoiceID: req.TTSVoiceID, OptimizationTier: req.OptimizationTier,
		TargetLanguage: req.TargetLanguage, RAGEnabled: req.RAGEnabled, SystemPromptID: req.SystemPromptID,
		IsDefault: req.IsDefault, CreatedAt: now, UpdatedAt: now,
	}
	if row.IsDefault {
		if err := s.clearExistingDefault(r.Context(), owner, row.ID); err != nil {
			respondError(w, http.StatusInternalServerError, "store_error", err.Error())
			return
		}
	}
	if err := s.store.PutSessionConfiguration(r.Context(), row); err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, configToDTO(row))
}

func (s *Server) handleUpdateConfiguration(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	existing, err := s.store.GetSessionConfiguration(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "configuration not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	var req sessionConfigRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Name != "" {
		existing.Name = req.Name
	}
	existing.LLMProvider = orElse(req.LLMProvider, existing.LLMProvider)
	existing.LLMModel = orElse(req.LLMModel, existing.LLMModel)
	existing.TTSProvider = orElse(req.TTSProvider, existing.TTSProvider)
	existing.TTSVoiceID = orElse(req.TTSVoiceID, existing.TTSVoiceID)
	existing.OptimizationTier = orElse(req.OptimizationTier, existing.OptimizationTier)
	existing.TargetLanguage = orElse(req.TargetLanguage, existing.TargetLanguage)
	existing.SystemPromptID = orElse(req.SystemPromptID, existing.SystemPromptID)
	existing.RAGEnabled = req.RAGEnabled
	existing.IsDefault = req.IsDefault
	existing.UpdatedAt = time.Now().UTC()

	if existing.IsDefault {
		if err := s.clearExistingDefault(r.Context(), existing.Owner, existing.ID); err != nil {
			respondError(w, http.StatusInternalServerError, "store_error", err.Error())
			return
		}
	}
	if err := s.store.PutSessionConfiguration(r.Context(), existing); err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, configToDTO(existing))
}

func (s *Server) handleDeleteConfiguration(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteSessionConfiguration(r.Context(), id); err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

func orElse(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
