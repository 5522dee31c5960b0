package oracle

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

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint
// (OpenRouter, Groq, local Ollama). This is the default backend.
type OpenAIClient struct {
	APIURL    string
	APIKey    string
	Model     string
	MaxTokens int
	client    *http.Client
}

// NewOpenAIClient creates a client with the given endpoint configuration.
func NewOpenAIClient(apiURL, apiKey, model string, timeout time.Duration) *OpenAIClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAIClient{
		APIURL:    apiURL,
		APIKey:    apiKey,
		Model:     model,
		MaxTokens: 500,
		client:    &http.Client{Timeout: timeout},
	}
}

// Complete sends a system+user message pair and returns the assistant text.
// Temperature is pinned to 0: verdict stages need the most deterministic
// output the backend can give.
func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	messages := []map[string]string{
		{"role": "system", "content": system},
		{"role": "user", "content": user},
	}

	body, err := json.Marshal(map[string]interface{}{
		"model":       c.Model,
		"messages":    messages,
		"max_tokens":  c.MaxTokens,
		"temperature": 0,
	})
	if err != nil {
		return "", &CallError{Backend: "openai", Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIURL, bytes.NewReader(body))
	if err != nil {
		return "", &CallError{Backend: "openai", Err: fmt.Errorf("create request: %w", err)}
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &CallError{Backend: "openai", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", &CallError{
			Backend: "openai",
			Err:     fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))),
		}
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil || len(result.Choices) == 0 {
		return "", &CallError{Backend: "openai", Err: fmt.Errorf("empty response")}
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}
