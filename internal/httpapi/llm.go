package httpapi

import "net/http"

func (s *Server) handleLLMProviders(w http.ResponseWriter, _ *http.Request) {
	if s.orchestrator.LLMs == nil {
		respondJSON(w, http.StatusOK, map[string]any{"providers": []string{}})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"providers": s.orchestrator.LLMs.Providers()})
}

func (s *Server) handleLLMModels(w http.ResponseWriter, _ *http.Request) {
	if s.orchestrator.LLMs == nil {
		respondJSON(w, http.StatusOK, map[string]any{"models": []any{}})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"models": s.orchestrator.LLMs.Models()})
}
