package pipeline

import (
	"strings"

	"github.com/rebately/offersync/internal/upstream"
)

// Normalize flattens the two upstream shapes into one ordered work-item
// list: Addrevenue campaigns first (joined to their advertiser by display
// name), then Awin promotions. Records not carrying the target market are
// dropped. The result's length is the run's total.
func Normalize(advertisers []upstream.Advertiser, campaigns []upstream.Campaign, promotions []upstream.Promotion, market string) []WorkItem {
	byName := make(map[string]*upstream.Advertiser, len(advertisers))
	for i := range advertisers {
		adv := &advertisers[i]
		if !adv.Markets[market] {
			continue
		}
		byName[strings.ToLower(adv.DisplayName)] = adv
	}

	var items []WorkItem
	for i := range campaigns {
		c := campaigns[i]
		if !strings.EqualFold(c.Market, market) {
			continue
		}
		item := WorkItem{Kind: KindCampaignOffer, Campaign: &c}
		if adv, ok := byName[strings.ToLower(c.AdvertiserName)]; ok {
			item.Advertiser = adv
		}
		items = append(items, item)
	}

	for i := range promotions {
		p := promotions[i]
		if !hasRegion(p.Regions, market) {
			continue
		}
		items = append(items, WorkItem{Kind: KindPromotionOffer, Promotion: &p})
	}

	return items
}

// hasRegion reports whether the promotion targets the market. Promotions
// without region data were already filtered server-side and pass through.
func hasRegion(regions []string, market string) bool {
	if len(regions) == 0 {
		return true
	}
	for _, r := range regions {
		if strings.EqualFold(r, market) {
			return true
		}
	}
	return false
}
