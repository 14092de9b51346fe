package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ElevenLabsTTSClient calls ElevenLabs' non-streaming text-to-speech REST
// endpoint — the turn engine's fallback TTS provider behind Sarvam (§4.7).
// Adapted from the teacher's ElevenLabsProvider: same API key header and
// base-URL conventions, but a single synchronous request/response instead
// of the teacher's websocket streaming session (out of scope: Non-goals
// exclude sub-turn streaming).
type ElevenLabsTTSClient struct {
	apiKey    string
	baseURL   string
	http      *http.Client
	languages map[string]bool
}

func NewElevenLabsTTSClient(apiKey, baseURL string, httpClient *http.Client) *ElevenLabsTTSClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "https://api.elevenlabs.io"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &ElevenLabsTTSClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		languages: map[string]bool{
			"en-IN": true, "en-US": true, "hi-IN": true,
		},
	}
}

func (c *ElevenLabsTTSClient) Name() string { return "elevenlabs" }

func (c *ElevenLabsTTSClient) SupportsLanguage(language string) bool { return c.languages[language] }

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Speed           float64 `json:"speed"`
}

type elevenLabsTTSRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	LanguageCode  string                  `json:"language_code,omitempty"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

// tuningToVoiceSettings maps the engine's provider-neutral pitch/pace/
// loudness tuning to ElevenLabs' stability/similarity_boost/speed knobs.
// ElevenLabs has no direct pitch control; pitch nudges stability instead, a
// deliberate approximation since the provider doesn't expose pitch.
func tuningToVoiceSettings(t TTSTuning) elevenLabsVoiceSettings {
	t = clampTuning(t)
	stability := 0.5 - t.Pitch*0.3
	if stability < 0 {
		stability = 0
	}
	if stability > 1 {
		stability = 1
	}
	speed := t.Pace
	if speed < 0.7 {
		speed = 0.7
	}
	if speed > 1.2 {
		speed = 1.2
	}
	return elevenLabsVoiceSettings{Stability: stability, SimilarityBoost: 0.75, Speed: speed}
}

func (c *ElevenLabsTTSClient) Synthesize(ctx context.Context, text, voiceID, language, codec string, sampleRate int, tuning TTSTuning, sessionID, turnID string) (TTSResult, error) {
	start := time.Now()

	if !c.SupportsLanguage(language) {
		return TTSResult{}, &ExternalProviderError{Provider: "elevenlabs", Op: "synthesize", Retryable: false, Err: fmt.Errorf("language %s not supported", language)}
	}
	if voiceID == "" {
		return TTSResult{}, &ExternalProviderError{Provider: "elevenlabs", Op: "synthesize", Retryable: false, Err: fmt.Errorf("voice_id is required")}
	}
	if codec == "" {
		codec = "mp3"
	}
	if sampleRate == 0 {
		sampleRate = 44100
	}

	reqBody := elevenLabsTTSRequest{
		Text:          text,
		ModelID:       "eleven_multilingual_v2",
		VoiceSettings: tuningToVoiceSettings(tuning),
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return TTSResult{}, &ExternalProviderError{Provider: "elevenlabs", Op: "synthesize", Err: err}
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=mp3_44100_128", c.baseURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return TTSResult{}, &ExternalProviderError{Provider: "elevenlabs", Op: "synthesize", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		if ctx.Err() != nil {
			return TTSResult{}, ctx.Err()
		}
		return TTSResult{}, ClassifyNetworkError("elevenlabs", "synthesize", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return TTSResult{}, ClassifyHTTPError("elevenlabs", "synthesize", resp.StatusCode, fmt.Errorf("elevenlabs tts: %s", string(respBody)))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return TTSResult{}, &ExternalProviderError{Provider: "elevenlabs", Op: "synthesize", Err: err}
	}

	return TTSResult{
		AudioBytes: audio,
		Codec:      codec,
		SampleRate: sampleRate,
		CharCount:  len([]rune(text)),
		LatencyMs:  latency,
	}, nil
}
