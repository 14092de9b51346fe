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

// OpenAILLMClient calls the OpenAI chat completions endpoint. Hides the
// provider's wire shape entirely behind the narrow LLMClient contract —
// the orchestrator never sees an OpenAI-specific type.
type OpenAILLMClient struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
}

func NewOpenAILLMClient(apiKey, baseURL, model string, httpClient *http.Client) *OpenAILLMClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAILLMClient{apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/"), model: model, http: httpClient}
}

func (c *OpenAILLMClient) Name() string { return "openai" }

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model       string              `json:"model"`
	Messages    []openAIChatMessage `json:"messages"`
	Temperature float64             `json:"temperature"`
	MaxTokens   int                 `json:"max_tokens"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message      openAIChatMessage `json:"message"`
		FinishReason string            `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (c *OpenAILLMClient) Generate(ctx context.Context, messages []Message, temperature float64, maxTokens int, sessionID, turnID string) (LLMResult, error) {
	start := time.Now()

	reqBody := openAIChatRequest{Model: c.model, Temperature: temperature, MaxTokens: maxTokens}
	for _, m := range messages {
		reqBody.Messages = append(reqBody.Messages, openAIChatMessage{Role: m.Role, Content: m.Content})
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return LLMResult{}, &ExternalProviderError{Provider: "openai", Op: "generate", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return LLMResult{}, &ExternalProviderError{Provider: "openai", Op: "generate", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		if ctx.Err() != nil {
			return LLMResult{}, ctx.Err()
		}
		return LLMResult{}, ClassifyNetworkError("openai", "generate", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return LLMResult{}, ClassifyHTTPError("openai", "generate", resp.StatusCode, fmt.Errorf("openai: %s", string(respBody)))
	}

	var parsed openAIChatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return LLMResult{}, &ExternalProviderError{Provider: "openai", Op: "generate", Err: err}
	}
	if len(parsed.Choices) == 0 {
		return LLMResult{}, &ExternalProviderError{Provider: "openai", Op: "generate", Err: fmt.Errorf("empty choices")}
	}

	return LLMResult{
		Text:         parsed.Choices[0].Message.Content,
		InputTokens:  parsed.Usage.PromptTokens,
		OutputTokens: parsed.Usage.CompletionTokens,
		FinishReason: parsed.Choices[0].FinishReason,
		LatencyMs:    latency,
	}, nil
}

func (c *OpenAILLMClient) ModelMetadata() []ModelMetadata {
	return []ModelMetadata{
		{ID: "gpt-4o-mini", ContextWindow: 128000, OutputCap: 16384, PricePerInputTok: 0.00000015, PricePerOutputTok: 0.0000006, StreamingSupport: true},
		{ID: "gpt-4o", ContextWindow: 128000, OutputCap: 16384, PricePerInputTok: 0.0000025, PricePerOutputTok: 0.00001, StreamingSupport: true},
	}
}
