package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sarvam-ai/turnengine/internal/store"
)

type systemPromptDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Text      string    `json:"text"`
	BuiltIn   bool      `json:"built_in"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func systemPromptToDTO(row store.SystemPromptRow) systemPromptDTO {
	return systemPromptDTO{ID: row.ID, Name: row.Name, Text: row.Text, BuiltIn: row.BuiltIn, CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt}
}

func (s *Server) handleListSystemPrompts(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListSystemPrompts(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	out := make([]systemPromptDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, systemPromptToDTO(row))
	}
	respondJSON(w, http.StatusOK, map[string]any{"system_prompts": out})
}

func (s *Server) handleGetSystemPrompt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	row, err := s.store.GetSystemPrompt(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "system prompt not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, systemPromptToDTO(row))
}

type systemPromptRequest struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

func (s *Server) handleCreateSystemPrompt(w http.ResponseWriter, r *http.Request) {
	var req systemPromptRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "name and text are required")
		return
	}
	now := time.Now().UTC()
	row := store.SystemPromptRow{ID: uuid.NewString(), Name: req.Name, Text: req.Text, BuiltIn: false, CreatedAt: now, UpdatedAt: now}
	if err := s.store.PutSystemPrompt(r.Context(), row); err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, systemPromptToDTO(row))
}

func (s *Server) handleUpdateSystemPrompt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	existing, err := s.store.GetSystemPrompt(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "system prompt not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	var req systemPromptRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Name) != "" {
		existing.Name = req.Name
	}
	if strings.TrimSpace(req.Text) != "" {
		existing.Text = req.Text
	}
	existing.UpdatedAt = time.Now().UTC()
	if err := s.store.PutSystemPrompt(r.Context(), existing); err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, systemPromptToDTO(existing))
}

func (s *Server) handleDeleteSystemPrompt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	existing, err := s.store.GetSystemPrompt(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "system prompt not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	if existing.BuiltIn {
		respondError(w, http.StatusBadRequest, "builtin_prompt_immutable", "built-in system prompts cannot be deleted")
		return
	}
	if err := s.store.DeleteSystemPrompt(r.Context(), id); err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}
