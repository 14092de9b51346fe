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

// AnthropicLLMClient calls the Anthropic messages endpoint, separating the
// optional system message (Anthropic takes it out-of-band) from the
// user/assistant turn history, same as every other LLMClient adapter hides
// its provider's quirks behind the one shared contract.
type AnthropicLLMClient struct {
	apiKey  string
	baseURL string
	model   string
	version string
	http    *http.Client
}

func NewAnthropicLLMClient(apiKey, baseURL, model string, httpClient *http.Client) *AnthropicLLMClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if model == "" {
		model = "claude-3-5-haiku-20241022"
	}
	return &AnthropicLLMClient{apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/"), model: model, version: "2023-06-01", http: httpClient}
}

func (c *AnthropicLLMClient) Name() string { return "anthropic" }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature"`
	MaxTokens   int                `json:"max_tokens"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (c *AnthropicLLMClient) Generate(ctx context.Context, messages []Message, temperature float64, maxTokens int, sessionID, turnID string) (LLMResult, error) {
	start := time.Now()

	reqBody := anthropicRequest{Model: c.model, Temperature: temperature, MaxTokens: maxTokens}
	for _, m := range messages {
		if m.Role == "system" {
			if reqBody.System != "" {
				reqBody.System += "\n"
			}
			reqBody.System += m.Content
			continue
		}
		reqBody.Messages = append(reqBody.Messages, anthropicMessage{Role: m.Role, Content: m.Content})
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return LLMResult{}, &ExternalProviderError{Provider: "anthropic", Op: "generate", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return LLMResult{}, &ExternalProviderError{Provider: "anthropic", Op: "generate", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", c.version)

	resp, err := c.http.Do(req)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		if ctx.Err() != nil {
			return LLMResult{}, ctx.Err()
		}
		return LLMResult{}, ClassifyNetworkError("anthropic", "generate", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return LLMResult{}, ClassifyHTTPError("anthropic", "generate", resp.StatusCode, fmt.Errorf("anthropic: %s", string(respBody)))
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return LLMResult{}, &ExternalProviderError{Provider: "anthropic", Op: "generate", Err: err}
	}
	text := ""
	if len(parsed.Content) > 0 {
		text = parsed.Content[0].Text
	}

	return LLMResult{
		Text:         text,
		InputTokens:  parsed.Usage.InputTokens,
		OutputTokens: parsed.Usage.OutputTokens,
		FinishReason: parsed.StopReason,
		LatencyMs:    latency,
	}, nil
}

func (c *AnthropicLLMClient) ModelMetadata() []ModelMetadata {
	return []ModelMetadata{
		{ID: "claude-3-5-haiku-20241022", ContextWindow: 200000, OutputCap: 8192, PricePerInputTok: 0.0000008, PricePerOutputTok: 0.000004, StreamingSupport: true},
		{ID: "claude-3-5-sonnet-20241022", ContextWindow: 200000, OutputCap: 8192, PricePerInputTok: 0.000003, PricePerOutputTok: 0.000015, StreamingSupport: true},
	}
}
