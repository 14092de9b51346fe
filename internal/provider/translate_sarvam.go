package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// SarvamTranslateClient calls Sarvam's text-translate endpoint. Domain-term
// preservation (tech/business/medical placeholders) is handled here, around
// the HTTP call, so the restoration is exact-string idempotent regardless
// of what the remote translator does to surrounding text.
type SarvamTranslateClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewSarvamTranslateClient(apiKey, baseURL string, httpClient *http.Client) *SarvamTranslateClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &SarvamTranslateClient{apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

type sarvamTranslateRequest struct {
	Input            string `json:"input"`
	SourceLanguage   string `json:"source_language_code"`
	TargetLanguage   string `json:"target_language_code"`
	Mode             string `json:"mode"`
	EnableCodeMixing bool   `json:"enable_preprocessing"`
	SpeakerGender    string `json:"speaker_gender,omitempty"`
}

type sarvamTranslateResponse struct {
	TranslatedText string `json:"translated_text"`
}

// domainPatterns holds a conservative term list per domain; callers name
// the applicable domains in TranslateConfig.PreserveDomains.
var domainPatterns = map[string][]string{
	"tech":     {"API", "SDK", "HTTP", "JSON", "OAuth", "webhook", "backend", "frontend"},
	"business": {"invoice", "SKU", "P&L", "EBITDA", "SaaS", "ARR", "churn"},
	"medical":  {"mg", "mL", "BP", "ECG", "dosage", "prescription"},
}

// placeholderTag wraps an opaque index so restoration is a plain string
// replace, not a regex match against translator output that may have
// reflowed surrounding punctuation.
const placeholderTag = "PRESERVE"

func placeholderFor(i int) string {
	return placeholderTag + strconv.Itoa(i) + ""
}

// extractDomainTerms replaces every occurrence of a preserved-domain term
// with a stable opaque placeholder (private-use-area sentinels the
// translator is extremely unlikely to mangle) and returns the rewritten
// text plus the ordered list of original terms to restore, indexed to match
// each placeholder's index.
func extractDomainTerms(text string, domains []string) (string, []string) {
	if len(domains) == 0 {
		return text, nil
	}
	var terms []string
	for _, d := range domains {
		terms = append(terms, domainPatterns[d]...)
	}
	var extracted []string
	out := text
	for _, term := range terms {
		for strings.Contains(out, term) {
			extracted = append(extracted, term)
			out = strings.Replace(out, term, placeholderFor(len(extracted)-1), 1)
		}
	}
	return out, extracted
}

// restoreDomainTerms substitutes placeholders back with their original
// terms by direct string replacement. Exact-string idempotent: calling it
// twice on already-restored text is a no-op because no placeholder
// sentinels remain to match.
func restoreDomainTerms(text string, extracted []string) string {
	out := text
	for i, term := range extracted {
		out = strings.Replace(out, placeholderFor(i), term, 1)
	}
	return out
}

func (c *SarvamTranslateClient) Translate(ctx context.Context, text, sourceLang, targetLang string, cfg TranslateConfig) (TranslateResult, error) {
	start := time.Now()

	preprocessed, extracted := extractDomainTerms(text, cfg.PreserveDomains)

	mode := "formal"
	switch {
	case cfg.FormalityLevel <= 33:
		mode = "formal"
	case cfg.FormalityLevel <= 66:
		mode = "classic-colloquial"
	default:
		mode = "modern-colloquial"
	}

	reqBody := sarvamTranslateRequest{
		Input:            preprocessed,
		SourceLanguage:   sourceLang,
		TargetLanguage:   targetLang,
		Mode:             mode,
		EnableCodeMixing: cfg.CodeMixingEnabled,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return TranslateResult{}, &ExternalProviderError{Provider: "sarvam", Op: "translate", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/translate", bytes.NewReader(payload))
	if err != nil {
		return TranslateResult{}, &ExternalProviderError{Provider: "sarvam", Op: "translate", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-subscription-key", c.apiKey)

	resp, err := c.http.Do(req)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		if ctx.Err() != nil {
			return TranslateResult{}, ctx.Err()
		}
		return TranslateResult{}, ClassifyNetworkError("sarvam", "translate", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return TranslateResult{}, ClassifyHTTPError("sarvam", "translate", resp.StatusCode, fmt.Errorf("sarvam translate: %s", string(respBody)))
	}

	var parsed sarvamTranslateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return TranslateResult{}, &ExternalProviderError{Provider: "sarvam", Op: "translate", Err: err}
	}

	restored := restoreDomainTerms(parsed.TranslatedText, extracted)

	return TranslateResult{
		Text:      restored,
		CharCount: len([]rune(text)),
		LatencyMs: latency,
	}, nil
}
