package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sarvam-ai/turnengine/internal/store"
)

// handleSessionCosts returns the §6 cost-RPC shape computed from the
// orchestrator's in-process cost rollup, not the raw durable cost_entries
// rows — the rollup is the source of truth for aggregate/cache-savings
// figures since durable writes are best-effort (internal/cost.Recorder).
func (s *Server) handleSessionCosts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.orchestrator.Cost == nil {
		respondError(w, http.StatusInternalServerError, "cost_recorder_unavailable", "no cost recorder configured")
		return
	}
	breakdown := s.orchestrator.Cost.Breakdown(id)
	respondJSON(w, http.StatusOK, map[string]any{
		"total_cost_usd":        breakdown.TotalCostUSD,
		"breakdown_by_service":  breakdown.ByService,
		"breakdown_by_provider": breakdown.ByProvider,
		"total_entries":         breakdown.TotalEntries,
		"cache_savings_usd":     breakdown.CacheSavingsUSD,
		"optimization_level":    breakdown.OptimizationLevel,
	})
}

func (s *Server) handleSessionMetrics(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	row, err := s.store.GetSessionMetrics(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "no metrics recorded for session")
			return
		}
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, row)
}
