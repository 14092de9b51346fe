package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sarvam-ai/turnengine/internal/store"
)

// validRatings gives each rating_type's allowed value set: thumbs is
// down/up (-1/+1), stars run 1-5.
var validRatings = map[string]map[int]bool{
	"thumbs": {-1: true, 1: true},
	"stars":  {1: true, 2: true, 3: true, 4: true, 5: true},
}

type feedbackRequest struct {
	SessionID  string `json:"session_id"`
	Rating     int    `json:"rating"`
	RatingType string `json:"rating_type"`
	Comment    string `json:"comment"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "session_id is required")
		return
	}
	allowed, ok := validRatings[req.RatingType]
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_rating_type", "rating_type must be one of: thumbs, stars")
		return
	}
	if !allowed[req.Rating] {
		respondError(w, http.StatusBadRequest, "invalid_rating", "rating out of range for rating_type")
		return
	}

	row := store.FeedbackRow{
		ID: uuid.NewString(), SessionID: req.SessionID, Rating: req.Rating,
		RatingType: req.RatingType, Comment: req.Comment, CreatedAt: time.Now().UTC(),
	}
	if err := s.store.InsertFeedback(r.Context(), row); err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, row)
}
