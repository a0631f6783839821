package upstream

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
	defaultAwinBaseURL = "https://api.awin.com"
	awinPageSize       = 100
)

// Promotion is one Awin promotion record.
type Promotion struct {
	PromotionID  int64    `json:"promotionId"`
	AdvertiserID int64    `json:"advertiserId"`
	Advertiser   string   `json:"advertiserName"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Terms        string   `json:"terms"`
	Type         string   `json:"type"` // "voucher" or "promotion"
	EndDate      string   `json:"endDate"`
	URLTracking  string   `json:"urlTracking"`
	Regions      []string `json:"regions"`
	Voucher      struct {
		Code string `json:"code"`
	} `json:"voucher"`
}

// ProgrammeInfo is the per-advertiser detail fetched during chunk processing.
type ProgrammeInfo struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	DisplayURL      string `json:"displayUrl"`
	ClickThroughURL string `json:"clickThroughUrl"`
	LogoURL         string `json:"logoUrl"`
	PrimaryRegion   struct {
		Name string `json:"name"`
		Code string `json:"countryCode"`
	} `json:"primaryRegion"`
}

// AwinClient fetches promotions and programme details from the Awin
// publisher API. ProgrammeDetail calls are quota-sensitive; the chunk
// processor routes them through the rate limiter.
type AwinClient struct {
	apiToken    string
	publisherID string
	baseURL     string
	client      *http.Client
}

type awinPromotionsRequest struct {
	Filters struct {
		Membership    string   `json:"membership"`
		RegionCodes   []string `json:"regionCodes"`
		Status        string   `json:"status"`
		ExclusiveOnly bool     `json:"exclusiveOnly"`
	} `json:"filters"`
	Pagination struct {
		Page     int `json:"page"`
		PageSize int `json:"pageSize"`
	} `json:"pagination"`
}

type awinPromotionsResponse struct {
	Data       []Promotion `json:"data"`
	Pagination struct {
		Page  int `json:"page"`
		Total int `json:"total"`
	} `json:"pagination"`
}

type awinProgrammeResponse struct {
	ProgrammeInfo *ProgrammeInfo `json:"programmeInfo"`
}

// NewAwinClient creates a client for the given API token and publisher id.
func NewAwinClient(apiToken, publisherID string) *AwinClient {
	return &AwinClient{
		apiToken:    apiToken,
		publisherID: publisherID,
		baseURL:     defaultAwinBaseURL,
		client:      &http.Client{Timeout: 30 * time.Second},
	}
}

// SetBaseURL overrides the API endpoint (tests).
func (c *AwinClient) SetBaseURL(u string) { c.baseURL = u }

// Promotions fetches all active promotions for the region, walking
// pagination until an empty page.
func (c *AwinClient) Promotions(ctx context.Context, region string) ([]Promotion, error) {
	if c.apiToken == "" {
		return nil, fmt.Errorf("awin API token not set")
	}

	var all []Promotion
	for page := 1; ; page++ {
		reqBody := awinPromotionsRequest{}
		reqBody.Filters.Membership = "joined"
		reqBody.Filters.RegionCodes = []string{region}
		reqBody.Filters.Status = "active"
		reqBody.Pagination.Page = page
		reqBody.Pagination.PageSize = awinPageSize

		body, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal promotions request: %w", err)
		}

		u := fmt.Sprintf("%s/publishers/%s/promotions", c.baseURL, c.publisherID)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("awin promotions request failed: %w", err)
		}
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("awin promotions returned %d: %s", resp.StatusCode, truncate(respBody, 200))
		}

		var decoded awinPromotionsResponse
		if err := json.Unmarshal(respBody, &decoded); err != nil {
			return nil, fmt.Errorf("failed to decode promotions response: %w", err)
		}
		if len(decoded.Data) == 0 {
			break
		}
		all = append(all, decoded.Data...)
		if len(decoded.Data) < awinPageSize {
			break
		}
	}
	return all, nil
}

// ProgrammeDetail fetches programme info for one advertiser. Returns
// (nil, nil) when the advertiser has no programme record.
func (c *AwinClient) ProgrammeDetail(ctx context.Context, advertiserID int64) (*ProgrammeInfo, error) {
	if c.apiToken == "" {
		return nil, fmt.Errorf("awin API token not set")
	}

	u := fmt.Sprintf("%s/publishers/%s/programmedetails?advertiserId=%d", c.baseURL, c.publisherID, advertiserID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("awin programmedetails request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("awin programmedetails returned %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var envelope awinProgrammeResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode programmedetails response: %w", err)
	}
	return envelope.ProgrammeInfo, nil
}
