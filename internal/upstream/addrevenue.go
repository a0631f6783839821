// Package upstream contains the HTTP clients for the two affiliate networks
// the pipeline ingests from: Addrevenue (network A) and Awin (network B).
//
// Clients return errors to the caller; the pipeline's fetch stage decides
// that a failed bulk fetch simply yields zero work items for that source.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultAddrevenueBaseURL = "https://addrevenue.io/api/v2"

// Advertiser is one Addrevenue advertiser record.
type Advertiser struct {
	ID          string          `json:"id"`
	DisplayName string          `json:"displayName"`
	Description string          `json:"description"`
	LogoURL     string          `json:"logoImageFilename"`
	Markets     map[string]bool `json:"markets"`
}

// Campaign is one Addrevenue campaign record.
type Campaign struct {
	ID             int64  `json:"id"`
	AdvertiserName string `json:"advertiserName"`
	Market         string `json:"market"`
	Description    string `json:"description"`
	DiscountCode   string `json:"discountCode"`
	TrackingLink   string `json:"trackingLink"`
	ValidTo        string `json:"validTo"` // YYYY-MM-DD, may be empty
}

// AddrevenueClient fetches advertiser and campaign lists from the Addrevenue
// v2 API.
type AddrevenueClient struct {
	apiToken  string
	channelID string
	baseURL   string
	client    *http.Client
}

type addrevenueEnvelope struct {
	Results json.RawMessage `json:"results"`
}

// NewAddrevenueClient creates a client for the given API token and channel.
func NewAddrevenueClient(apiToken, channelID string) *AddrevenueClient {
	return &AddrevenueClient{
		apiToken:  apiToken,
		channelID: channelID,
		baseURL:   defaultAddrevenueBaseURL,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// SetBaseURL overrides the API endpoint (tests).
func (c *AddrevenueClient) SetBaseURL(u string) { c.baseURL = u }

// Advertisers fetches the advertiser list for the configured channel.
func (c *AddrevenueClient) Advertisers(ctx context.Context) ([]Advertiser, error) {
	var out []Advertiser
	if err := c.get(ctx, "advertisers", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Campaigns fetches the campaign list for the configured channel.
func (c *AddrevenueClient) Campaigns(ctx context.Context) ([]Campaign, error) {
	var out []Campaign
	if err := c.get(ctx, "campaigns", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AddrevenueClient) get(ctx context.Context, resource string, out any) error {
	if c.apiToken == "" {
		return fmt.Errorf("addrevenue API token not set")
	}

	u := fmt.Sprintf("%s/%s?channelId=%s", c.baseURL, resource, url.QueryEscape(c.channelID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("addrevenue %s request failed: %w", resource, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("addrevenue %s returned %d: %s", resource, resp.StatusCode, truncate(body, 200))
	}

	var envelope addrevenueEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", resource, err)
	}
	if len(envelope.Results) == 0 {
		return fmt.Errorf("addrevenue %s response missing results array", resource)
	}
	if err := json.Unmarshal(envelope.Results, out); err != nil {
		return fmt.Errorf("failed to decode %s results: %w", resource, err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
