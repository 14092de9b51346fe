package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// SarvamASRClient transcribes audio via Sarvam's speech-to-text REST
// endpoint. One method, one HTTP round trip per call — no sub-turn
// streaming per spec's Non-goals.
type SarvamASRClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewSarvamASRClient(apiKey, baseURL string, httpClient *http.Client) *SarvamASRClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &SarvamASRClient{apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

type sarvamASRResponse struct {
	Transcript       string  `json:"transcript"`
	LanguageCode     string  `json:"language_code"`
	Confidence       float64 `json:"confidence"`
	RequestID        string  `json:"request_id"`
}

func (c *SarvamASRClient) Transcribe(ctx context.Context, audioBytes []byte, languageHint string, sessionID, turnID string) (ASRResult, error) {
	start := time.Now()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", "audio.wav")
	if err != nil {
		return ASRResult{}, &ExternalProviderError{Provider: "sarvam", Op: "transcribe", Err: err}
	}
	if _, err := part.Write(audioBytes); err != nil {
		return ASRResult{}, &ExternalProviderError{Provider: "sarvam", Op: "transcribe", Err: err}
	}
	langField := languageHint
	if langField == "" {
		langField = "unknown"
	}
	_ = w.WriteField("language_code", langField)
	_ = w.WriteField("model", "saarika:v2")
	if err := w.Close(); err != nil {
		return ASRResult{}, &ExternalProviderError{Provider: "sarvam", Op: "transcribe", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/speech-to-text", body)
	if err != nil {
		return ASRResult{}, &ExternalProviderError{Provider: "sarvam", Op: "transcribe", Err: err}
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("api-subscription-key", c.apiKey)
	req.Header.Set("x-session-id", sessionID)
	req.Header.Set("x-turn-id", turnID)

	resp, err := c.http.Do(req)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		if ctx.Err() != nil {
			return ASRResult{}, ctx.Err()
		}
		return ASRResult{}, ClassifyNetworkError("sarvam", "transcribe", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return ASRResult{}, ClassifyHTTPError("sarvam", "transcribe", resp.StatusCode, fmt.Errorf("sarvam asr: %s", string(respBody)))
	}

	var parsed sarvamASRResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return ASRResult{}, &ExternalProviderError{Provider: "sarvam", Op: "transcribe", Err: err}
	}
	if parsed.Confidence == 0 {
		parsed.Confidence = 0.85
	}

	return ASRResult{
		Text:             parsed.Transcript,
		DetectedLanguage: parsed.LanguageCode,
		Confidence:       parsed.Confidence,
		DurationMs:       estimatePCMDurationMs(len(audioBytes)),
		LatencyMs:        latency,
	}, nil
}

// estimatePCMDurationMs assumes 16kHz mono 16-bit PCM and does not parse
// any container header in the client's audio bytes. Used only for cost attribution when the provider itself
// does not report duration.
func estimatePCMDurationMs(byteLen int) int64 {
	const bytesPerMs = 16000 * 2 / 1000
	if bytesPerMs == 0 {
		return 0
	}
	return int64(byteLen / bytesPerMs)
}
