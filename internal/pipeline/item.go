package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rebately/offersync/internal/contentstore"
	"github.com/rebately/offersync/internal/enrich"
)

type itemResult int

const (
	itemCreated itemResult = iota
	itemSkipped
	itemDeferred
)

// processItem handles one work item end to end: brand resolution,
// programme detail, enrichment, dedup, persistence. Errors returned here
// are item-scoped; the chunk loop counts and continues.
func (p *Processor) processItem(ctx context.Context, item WorkItem) (itemResult, error) {
	if err := item.Validate(); err != nil {
		return 0, err
	}

	rawName := item.AdvertiserName()
	if rawName == "" {
		return 0, fmt.Errorf("item %s has no advertiser name", item.ExternalID())
	}

	b, err := p.resolver.Resolve(ctx, rawName)
	if err != nil {
		return 0, fmt.Errorf("brand resolution: %w", err)
	}
	if err := p.content.AddBrandSourceTag(ctx, b.ID, sourceTag(item.Kind)); err != nil {
		p.logger.Warn("failed to tag brand source", "brand", b.CanonicalName, "error", err)
	}

	// Existence check is the dedup boundary: at most one offer per
	// external id, ever.
	externalID := item.ExternalID()
	if _, err := p.content.FindOfferByExternalID(ctx, externalID); err == nil {
		return itemSkipped, nil
	} else if !errors.Is(err, contentstore.ErrNotFound) {
		return 0, fmt.Errorf("offer lookup: %w", err)
	}

	offer, err := p.buildOffer(ctx, item, b)
	if err != nil {
		return 0, err
	}
	if offer == nil {
		// Title enrichment deferred; no offer this cycle, the retry queue
		// and the next run take over.
		return itemDeferred, nil
	}

	created, err := p.content.CreateOffer(ctx, offer)
	if err != nil {
		return 0, fmt.Errorf("offer create: %w", err)
	}
	if !created {
		return itemSkipped, nil
	}
	if err := p.content.AttachTaxonomy(ctx, offer.ID, b.ID); err != nil {
		return 0, fmt.Errorf("taxonomy attach: %w", err)
	}
	return itemCreated, nil
}

// buildOffer assembles the offer fields, generating whatever content the
// upstream record lacks. Returns (nil, nil) when title enrichment was
// deferred.
func (p *Processor) buildOffer(ctx context.Context, item WorkItem, b *contentstore.Brand) (*contentstore.Offer, error) {
	offer := &contentstore.Offer{
		ExternalID:     item.ExternalID(),
		AdvertiserName: b.CanonicalName,
		BrandID:        b.ID,
	}

	var description, trackingURL string
	switch item.Kind {
	case KindCampaignOffer:
		c := item.Campaign
		description = c.Description
		trackingURL = c.TrackingLink
		offer.Code = c.DiscountCode
		if t, err := time.Parse("2006-01-02", c.ValidTo); err == nil {
			offer.ValidUntil = &t
		}
	case KindPromotionOffer:
		pr := item.Promotion
		description = pr.Description
		trackingURL = pr.URLTracking
		offer.Code = pr.Voucher.Code
		if t, err := time.Parse("2006-01-02", pr.EndDate); err == nil {
			offer.ValidUntil = &t
		}
		p.enrichFromProgramme(ctx, item, b)
	}
	if offer.Code != "" {
		offer.Type = contentstore.OfferTypeCode
	} else {
		offer.Type = contentstore.OfferTypeSale
	}
	offer.Description = description

	inputs := map[string]string{
		"advertiser":  b.CanonicalName,
		"description": description,
	}

	title, pending := p.enricher.Title(ctx, inputs)
	if pending {
		return nil, nil
	}
	offer.Title = title

	if item.Kind == KindPromotionOffer && item.Promotion.Terms != "" {
		offer.Terms = splitTerms(item.Promotion.Terms)
	}
	if len(offer.Terms) == 0 {
		terms, pending := p.enricher.Terms(ctx, inputs)
		if pending {
			// Deferred terms are not worth holding the offer for; the
			// fallback set is serviceable.
			terms = enrich.NormalizeTerms("")
		}
		offer.Terms = terms
	}

	highlights, pending := p.enricher.WhyWeLove(ctx, inputs)
	if !pending {
		for _, h := range highlights {
			offer.WhyWeLove = append(offer.WhyWeLove, h.Text+"|"+h.Icon)
		}
	}

	if b.Description == "" {
		if desc, pending := p.enricher.BrandDescription(ctx, inputs, b.ID); !pending {
			if err := p.content.UpdateBrandField(ctx, b.ID, "description", desc); err != nil {
				p.logger.Warn("failed to store brand description",
					"brand", b.CanonicalName, "error", err)
			}
		}
	}

	offer.TrackingURL = p.shorten(ctx, trackingURL, b.Slug, item.ExternalID())
	return offer, nil
}

// enrichFromProgramme pulls per-advertiser programme info through the rate
// limiter; absence of detail never fails the item.
func (p *Processor) enrichFromProgramme(ctx context.Context, item WorkItem, b *contentstore.Brand) {
	if item.Promotion.AdvertiserID == 0 {
		return
	}
	if err := p.limiter.Acquire(ctx); err != nil {
		p.logger.Warn("rate limiter interrupted", "error", err)
		return
	}
	info, err := p.promos.ProgrammeDetail(ctx, item.Promotion.AdvertiserID)
	if err != nil {
		p.logger.Warn("programme detail fetch failed",
			"advertiser_id", item.Promotion.AdvertiserID, "error", err)
		return
	}
	if info == nil {
		return
	}
	if b.Description == "" && info.Description != "" {
		desc := strings.TrimSpace(info.Description)
		if err := p.content.UpdateBrandField(ctx, b.ID, "description", desc); err == nil {
			b.Description = desc
		}
	}
}

// shorten produces the stored tracking URL, falling back to the long URL
// when the shortener is unavailable.
func (p *Processor) shorten(ctx context.Context, longURL, slug, externalID string) string {
	if longURL == "" || p.shortener == nil {
		return longURL
	}
	// "awin-123" -> keyword "<slug>-123"; stable per offer, so the call is
	// idempotent across runs.
	suffix := externalID
	if i := strings.LastIndexByte(externalID, '-'); i >= 0 {
		suffix = externalID[i+1:]
	}
	keyword := slug + "-" + suffix
	short, err := p.shortener.CreateShortURL(ctx, longURL, keyword)
	if err != nil {
		p.logger.Warn("short url failed, using long url", "keyword", keyword, "error", err)
		return longURL
	}
	return short
}

func sourceTag(kind ItemKind) string {
	if kind == KindPromotionOffer {
		return contentstore.SourceAwin
	}
	return contentstore.SourceAddrevenue
}

// splitTerms converts upstream free-text terms into the three-bullet shape
// used everywhere else.
func splitTerms(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == '\n' || r == ';' })
	var out []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !strings.HasSuffix(part, ".") && !strings.HasSuffix(part, "!") {
			part += "."
		}
		out = append(out, part)
		if len(out) == 3 {
			break
		}
	}
	return out
}

