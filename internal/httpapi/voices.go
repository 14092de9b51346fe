package httpapi

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sarvam-ai/turnengine/internal/audio"
	"github.com/sarvam-ai/turnengine/internal/provider"
	"github.com/sarvam-ai/turnengine/internal/voiceregistry"
)

// voiceCatalogCache memoizes the `GET /tts/voices` response for an hour
// (§6), since the catalog is static seed data refreshed only occasionally.
type voiceCatalogCache struct {
	mu       sync.Mutex
	at       time.Time
	payload  []voiceDTO
}

const voiceCatalogTTL = time.Hour

type voiceDTO struct {
	Provider           string   `json:"provider"`
	VoiceID            string   `json:"voice_id"`
	DisplayName        string   `json:"display_name"`
	SupportedLanguages []string `json:"supported_languages"`
	Gender             string   `json:"gender"`
	IsCustom           bool     `json:"is_custom"`
}

func descriptorToDTO(d voiceregistry.Descriptor) voiceDTO {
	return voiceDTO{
		Provider: d.Provider, VoiceID: d.VoiceID, DisplayName: d.DisplayName,
		SupportedLanguages: d.SupportedLanguages, Gender: d.Gender, IsCustom: d.IsCustom,
	}
}

func (s *Server) handleTTSProviders(w http.ResponseWriter, _ *http.Request) {
	if s.orchestrator.Voices == nil {
		respondJSON(w, http.StatusOK, map[string]any{"providers": []string{}})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"providers": s.orchestrator.Voices.Providers()})
}

func (s *Server) handleTTSVoices(w http.ResponseWriter, _ *http.Request) {
	s.voiceCache.mu.Lock()
	if time.Since(s.voiceCache.at) < voiceCatalogTTL && s.voiceCache.payload != nil {
		payload := s.voiceCache.payload
		s.voiceCache.mu.Unlock()
		respondJSON(w, http.StatusOK, map[string]any{"voices": payload})
		return
	}
	s.voiceCache.mu.Unlock()

	var dtos []voiceDTO
	if s.orchestrator.Voices != nil {
		for _, d := range s.orchestrator.Voices.All() {
			dtos = append(dtos, descriptorToDTO(d))
		}
	}

	s.voiceCache.mu.Lock()
	s.voiceCache.payload = dtos
	s.voiceCache.at = time.Now()
	s.voiceCache.mu.Unlock()

	respondJSON(w, http.StatusOK, map[string]any{"voices": dtos})
}

type previewTTSRequest struct {
	Provider   string             `json:"provider"`
	VoiceID    string             `json:"voice_id"`
	Language   string             `json:"language"`
	Text       string             `json:"text"`
	Codec      string             `json:"codec"`
	SampleRate int                `json:"sample_rate"`
	Tuning     provider.TTSTuning `json:"tuning"`
}

func (s *Server) handleTTSPreview(w http.ResponseWriter, r *http.Request) {
	var req previewTTSRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" || strings.TrimSpace(req.VoiceID) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "voice_id and text are required")
		return
	}
	if s.orchestrator.TTS == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "no TTS provider configured")
		return
	}
	language := req.Language
	if language == "" {
		language = voiceregistry.FallbackLanguage
	}
	codec := req.Codec
	if codec == "" {
		codec = "mp3"
	}
	sampleRate := req.SampleRate
	if sampleRate == 0 {
		sampleRate = 24000
	}

	ctx, cancel := s.deadlineCtx(r)
	defer cancel()
	res, err := s.orchestrator.TTS.Synthesize(ctx, req.Text, req.VoiceID, language, codec, sampleRate, req.Tuning, "preview", "preview")
	if err != nil {
		respondError(w, http.StatusBadGateway, "tts_preview_failed", err.Error())
		return
	}

	payload := res.AudioBytes
	if strings.EqualFold(res.Codec, "pcm") {
		wav, err := audio.EncodeWAVPCM16LE(payload, res.SampleRate)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "wav_encode_failed", err.Error())
			return
		}
		payload = wav
	}

	w.Header().Set("Content-Type", mimeForCodec(res.Codec))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}
