package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SarvamTTSClient calls Sarvam's text-to-speech endpoint, returning one
// complete audio blob per call — the non-streaming per-turn TTS contract
// spec's Non-goals require (no sub-turn streaming of partial output).
type SarvamTTSClient struct {
	apiKey    string
	baseURL   string
	http      *http.Client
	languages map[string]bool
}

func NewSarvamTTSClient(apiKey, baseURL string, httpClient *http.Client) *SarvamTTSClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &SarvamTTSClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		languages: map[string]bool{
			"en-IN": true, "hi-IN": true, "ta-IN": true, "kn-IN": true, "te-IN": true, "mr-IN": true, "bn-IN": true, "gu-IN": true,
		},
	}
}

func (c *SarvamTTSClient) Name() string { return "sarvam" }

func (c *SarvamTTSClient) SupportsLanguage(language string) bool { return c.languages[language] }

type sarvamTTSRequest struct {
	Text          string  `json:"text"`
	TargetLang    string  `json:"target_language_code"`
	Speaker       string  `json:"speaker"`
	Pitch         float64 `json:"pitch"`
	Pace          float64 `json:"pace"`
	Loudness      float64 `json:"loudness"`
	SampleRate    int     `json:"speech_sample_rate"`
	AudioEncoding string  `json:"audio_encoding"`
}

type sarvamTTSResponse struct {
	Audios []string `json:"audios"`
}

// clampTuning bounds the prosody knobs to the ranges §4.2 names: pitch
// [-0.75, 0.75], pace [0.3, 3.0], loudness [0, 3.0].
func clampTuning(t TTSTuning) TTSTuning {
	clamp := func(v, lo, hi float64) float64 {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}
	return TTSTuning{
		Pitch:    clamp(t.Pitch, -0.75, 0.75),
		Pace:     clamp(t.Pace, 0.3, 3.0),
		Loudness: clamp(t.Loudness, 0, 3.0),
	}
}

func (c *SarvamTTSClient) Synthesize(ctx context.Context, text, voiceID, language, codec string, sampleRate int, tuning TTSTuning, sessionID, turnID string) (TTSResult, error) {
	start := time.Now()

	if !c.SupportsLanguage(language) {
		return TTSResult{}, &ExternalProviderError{Provider: "sarvam", Op: "synthesize", Retryable: false, Err: fmt.Errorf("language %s not supported", language)}
	}
	tuning = clampTuning(tuning)
	if codec == "" {
		codec = "wav"
	}
	if sampleRate == 0 {
		sampleRate = 22050
	}

	reqBody := sarvamTTSRequest{
		Text:          text,
		TargetLang:    language,
		Speaker:       voiceID,
		Pitch:         tuning.Pitch,
		Pace:          tuning.Pace,
		Loudness:      tuning.Loudness,
		SampleRate:    sampleRate,
		AudioEncoding: codec,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return TTSResult{}, &ExternalProviderError{Provider: "sarvam", Op: "synthesize", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/text-to-speech", bytes.NewReader(payload))
	if err != nil {
		return TTSResult{}, &ExternalProviderError{Provider: "sarvam", Op: "synthesize", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-subscription-key", c.apiKey)
	req.Header.Set("x-session-id", sessionID)
	req.Header.Set("x-turn-id", turnID)

	resp, err := c.http.Do(req)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		if ctx.Err() != nil {
			return TTSResult{}, ctx.Err()
		}
		return TTSResult{}, ClassifyNetworkError("sarvam", "synthesize", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return TTSResult{}, ClassifyHTTPError("sarvam", "synthesize", resp.StatusCode, fmt.Errorf("sarvam tts: %s", string(respBody)))
	}

	var parsed sarvamTTSResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return TTSResult{}, &ExternalProviderError{Provider: "sarvam", Op: "synthesize", Err: err}
	}
	if len(parsed.Audios) == 0 {
		return TTSResult{}, &ExternalProviderError{Provider: "sarvam", Op: "synthesize", Err: fmt.Errorf("empty audio response")}
	}
	audio, err := base64.StdEncoding.DecodeString(parsed.Audios[0])
	if err != nil {
		return TTSResult{}, &ExternalProviderError{Provider: "sarvam", Op: "synthesize", Err: err}
	}

	return TTSResult{
		AudioBytes: audio,
		Codec:      codec,
		SampleRate: sampleRate,
		CharCount:  len([]rune(text)),
		LatencyMs:  latency,
	}, nil
}
