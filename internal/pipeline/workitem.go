// Package pipeline implements the synchronization pipeline: normalizing
// upstream records into work items, gating runs, and processing items in
// resumable chunks.
package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/rebately/offersync/internal/upstream"
)

// ItemKind tags the work-item union.
type ItemKind string

const (
	// KindCampaignOffer is an Addrevenue campaign joined to its advertiser.
	KindCampaignOffer ItemKind = "campaign_offer"
	// KindPromotionOffer is an Awin promotion.
	KindPromotionOffer ItemKind = "promotion_offer"
)

// WorkItem is one normalized, source-tagged unit of upstream data. Exactly
// one payload field is set, according to Kind. Immutable once produced by
// the normalizer.
type WorkItem struct {
	Kind       ItemKind             `json:"kind"`
	Campaign   *upstream.Campaign   `json:"campaign,omitempty"`
	Advertiser *upstream.Advertiser `json:"advertiser,omitempty"`
	Promotion  *upstream.Promotion  `json:"promotion,omitempty"`
}

// ExternalID is the upstream-assigned identifier used for dedup, prefixed
// with the source network.
func (w WorkItem) ExternalID() string {
	switch w.Kind {
	case KindCampaignOffer:
		return fmt.Sprintf("addrevenue-%d", w.Campaign.ID)
	case KindPromotionOffer:
		return fmt.Sprintf("awin-%d", w.Promotion.PromotionID)
	}
	return ""
}

// AdvertiserName returns the raw advertiser display name for brand
// resolution.
func (w WorkItem) AdvertiserName() string {
	switch w.Kind {
	case KindCampaignOffer:
		return w.Campaign.AdvertiserName
	case KindPromotionOffer:
		return w.Promotion.Advertiser
	}
	return ""
}

// Validate checks the union invariant.
func (w WorkItem) Validate() error {
	switch w.Kind {
	case KindCampaignOffer:
		if w.Campaign == nil {
			return fmt.Errorf("campaign_offer item without campaign payload")
		}
	case KindPromotionOffer:
		if w.Promotion == nil {
			return fmt.Errorf("promotion_offer item without promotion payload")
		}
	default:
		return fmt.Errorf("unknown work item kind %q", w.Kind)
	}
	return nil
}

// EncodeItems serializes work items for the sync-state row.
func EncodeItems(items []WorkItem) (string, error) {
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("failed to encode work items: %w", err)
	}
	return string(b), nil
}

// DecodeItems restores work items from the sync-state row.
func DecodeItems(raw string) ([]WorkItem, error) {
	var items []WorkItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("failed to decode work items: %w", err)
	}
	for i, item := range items {
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("work item %d: %w", i, err)
		}
	}
	return items, nil
}
