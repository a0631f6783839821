// Package shortener wraps a YOURLS-style URL shortening collaborator.
package shortener

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Shortener turns tracking URLs into stable short links.
type Shortener interface {
	CreateShortURL(ctx context.Context, longURL, keyword string) (string, error)
}

// Client is a YOURLS API client. CreateShortURL is idempotent per keyword:
// an already-taken keyword returns the existing short URL.
type Client struct {
	endpoint  string
	signature string
	client    *http.Client
}

type yourlsResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	ShortURL string `json:"shorturl"`
	Message  string `json:"message"`
	URL      struct {
		Keyword string `json:"keyword"`
	} `json:"url"`
}

// New creates a client for the given YOURLS endpoint and signature token.
func New(endpoint, signature string) *Client {
	return &Client{
		endpoint:  endpoint,
		signature: signature,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

// CreateShortURL registers keyword -> longURL and returns the short URL.
func (c *Client) CreateShortURL(ctx context.Context, longURL, keyword string) (string, error) {
	if c.endpoint == "" {
		return "", fmt.Errorf("shortener endpoint not set")
	}

	form := url.Values{
		"action":    {"shorturl"},
		"format":    {"json"},
		"url":       {longURL},
		"keyword":   {keyword},
		"signature": {c.signature},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("shortener request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	var decoded yourlsResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("failed to decode shortener response: %w", err)
	}

	switch {
	case decoded.Status == "success" && decoded.ShortURL != "":
		return decoded.ShortURL, nil
	case decoded.Code == "error:keyword" && decoded.ShortURL != "":
		// Keyword already registered; the existing short URL is the answer.
		return decoded.ShortURL, nil
	default:
		return "", fmt.Errorf("shortener rejected keyword %q: %s", keyword, decoded.Message)
	}
}
