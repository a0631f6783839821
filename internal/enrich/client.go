// Package enrich generates missing offer and brand content through a
// chat-completion provider and defers failed calls to a durable retry queue.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultChatBaseURL     = "https://api.openai.com/v1/chat/completions"
	defaultChatModel       = "gpt-4o-mini"
	defaultChatMaxTokens   = 300
	defaultChatTemperature = 0.7
)

// Provider is the completion dependency the enricher calls.
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ChatClient talks to a chat-style completion endpoint. A failed call is a
// failed call — retry policy lives in the enricher's deferred queue, not
// here.
type ChatClient struct {
	apiKey      string
	model       string
	baseURL     string
	maxTokens   int
	temperature float64
	client      *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type chatError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewChatClient creates a completion client. Empty model uses the default.
func NewChatClient(apiKey, model string) *ChatClient {
	if model == "" {
		model = defaultChatModel
	}
	return &ChatClient{
		apiKey:      apiKey,
		model:       model,
		baseURL:     defaultChatBaseURL,
		maxTokens:   defaultChatMaxTokens,
		temperature: defaultChatTemperature,
		client:      &http.Client{Timeout: 60 * time.Second},
	}
}

// SetBaseURL overrides the API endpoint (tests).
func (c *ChatClient) SetBaseURL(u string) { c.baseURL = u }

// SetTuning overrides the sampling parameters. Zero values keep the
// defaults.
func (c *ChatClient) SetTuning(maxTokens int, temperature float64) {
	if maxTokens > 0 {
		c.maxTokens = maxTokens
	}
	if temperature > 0 {
		c.temperature = temperature
	}
}

// Complete sends one chat completion request and returns the first choice.
func (c *ChatClient) Complete(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("enrichment API key not set")
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr chatError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("completion API error (%d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return "", fmt.Errorf("completion API error (%d)", resp.StatusCode)
	}

	var decoded chatResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("completion response has no choices")
	}
	return decoded.Choices[0].Message.Content, nil
}
