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

// SarvamLLMClient calls Sarvam's chat-completions endpoint. Sarvam's
// request/response shapes mirror OpenAI's closely enough that this adapter
// is a thin variant of OpenAILLMClient, but it stays a separate type so a
// provider-specific quirk never has to be guarded with an if-branch inside
// a shared implementation.
type SarvamLLMClient struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
}

func NewSarvamLLMClient(apiKey, baseURL, model string, httpClient *http.Client) *SarvamLLMClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if model == "" {
		model = "sarvam-m"
	}
	return &SarvamLLMClient{apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/"), model: model, http: httpClient}
}

func (c *SarvamLLMClient) Name() string { return "sarvam" }

type sarvamChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type sarvamChatRequest struct {
	Model       string              `json:"model"`
	Messages    []sarvamChatMessage `json:"messages"`
	Temperature float64             `json:"temperature"`
	MaxTokens   int                 `json:"max_tokens"`
}

type sarvamChatResponse struct {
	Choices []struct {
		Message      sarvamChatMessage `json:"message"`
		FinishReason string            `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (c *SarvamLLMClient) Generate(ctx context.Context, messages []Message, temperature float64, maxTokens int, sessionID, turnID string) (LLMResult, error) {
	start := time.Now()

	reqBody := sarvamChatRequest{Model: c.model, Temperature: temperature, MaxTokens: maxTokens}
	for _, m := range messages {
		reqBody.Messages = append(reqBody.Messages, sarvamChatMessage{Role: m.Role, Content: m.Content})
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return LLMResult{}, &ExternalProviderError{Provider: "sarvam", Op: "generate", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return LLMResult{}, &ExternalProviderError{Provider: "sarvam", Op: "generate", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-subscription-key", c.apiKey)
	req.Header.Set("x-session-id", sessionID)
	req.Header.Set("x-turn-id", turnID)

	resp, err := c.http.Do(req)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		if ctx.Err() != nil {
			return LLMResult{}, ctx.Err()
		}
		return LLMResult{}, ClassifyNetworkError("sarvam", "generate", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return LLMResult{}, ClassifyHTTPError("sarvam", "generate", resp.StatusCode, fmt.Errorf("sarvam llm: %s", string(respBody)))
	}

	var parsed sarvamChatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return LLMResult{}, &ExternalProviderError{Provider: "sarvam", Op: "generate", Err: err}
	}
	if len(parsed.Choices) == 0 {
		return LLMResult{}, &ExternalProviderError{Provider: "sarvam", Op: "generate", Err: fmt.Errorf("empty choices")}
	}

	return LLMResult{
		Text:         parsed.Choices[0].Message.Content,
		InputTokens:  parsed.Usage.PromptTokens,
		OutputTokens: parsed.Usage.CompletionTokens,
		FinishReason: parsed.Choices[0].FinishReason,
		LatencyMs:    latency,
	}, nil
}

func (c *SarvamLLMClient) ModelMetadata() []ModelMetadata {
	return []ModelMetadata{
		{ID: "sarvam-m", ContextWindow: 32000, OutputCap: 4096, PricePerInputTok: 0.0000002, PricePerOutputTok: 0.0000004, StreamingSupport: false},
	}
}
