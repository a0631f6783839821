package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rebately/offersync/internal/brand"
	"github.com/rebately/offersync/internal/contentstore"
	"github.com/rebately/offersync/internal/enrich"
	"github.com/rebately/offersync/internal/store"
	"github.com/rebately/offersync/internal/upstream"
)

var errMockFetch = errors.New("mock fetch error")

// mockCampaignSource serves canned network A data and counts fetches.
type mockCampaignSource struct {
	advertisers []upstream.Advertiser
	campaigns   []upstream.Campaign
	fetchCount  int
	fail        bool
}

func (m *mockCampaignSource) Advertisers(ctx context.Context) ([]upstream.Advertiser, error) {
	m.fetchCount++
	if m.fail {
		return nil, errMockFetch
	}
	return m.advertisers, nil
}

func (m *mockCampaignSource) Campaigns(ctx context.Context) ([]upstream.Campaign, error) {
	if m.fail {
		return nil, errMockFetch
	}
	return m.campaigns, nil
}

// mockPromotionSource serves canned network B data.
type mockPromotionSource struct {
	promotions  []upstream.Promotion
	detail      map[int64]*upstream.ProgrammeInfo
	detailCalls int
	fail        bool
}

func (m *mockPromotionSource) Promotions(ctx context.Context, region string) ([]upstream.Promotion, error) {
	if m.fail {
		return nil, errMockFetch
	}
	return m.promotions, nil
}

func (m *mockPromotionSource) ProgrammeDetail(ctx context.Context, advertiserID int64) (*upstream.ProgrammeInfo, error) {
	m.detailCalls++
	return m.detail[advertiserID], nil
}

// mockEnricher returns deterministic content; kinds in pending report a
// deferred call.
type mockEnricher struct {
	pending map[string]bool
}

func (m *mockEnricher) Title(ctx context.Context, inputs map[string]string) (string, bool) {
	if m.pending[enrich.KindTitle] {
		return "", true
	}
	return "Deal at " + inputs["advertiser"], false
}

func (m *mockEnricher) Terms(ctx context.Context, inputs map[string]string) ([]string, bool) {
	if m.pending[enrich.KindTerms] {
		return nil, true
	}
	return []string{"One.", "Two.", "Three."}, false
}

func (m *mockEnricher) BrandDescription(ctx context.Context, inputs map[string]string, brandID int64) (string, bool) {
	if m.pending[enrich.KindBrandDescription] {
		return "", true
	}
	return "<p>About " + inputs["advertiser"] + "</p>", false
}

func (m *mockEnricher) WhyWeLove(ctx context.Context, inputs map[string]string) ([]enrich.Highlight, bool) {
	if m.pending[enrich.KindWhyWeLove] {
		return nil, true
	}
	return []enrich.Highlight{{Text: "Great prices", Icon: "tag"}}, false
}

// mockShortener prefixes instead of shortening.
type mockShortener struct {
	fail  bool
	calls int
}

func (m *mockShortener) CreateShortURL(ctx context.Context, longURL, keyword string) (string, error) {
	m.calls++
	if m.fail {
		return "", errors.New("mock shortener error")
	}
	return "https://s.example/" + keyword, nil
}

// countingLimiter records acquisitions without throttling.
type countingLimiter struct {
	acquired int
}

func (l *countingLimiter) Acquire(ctx context.Context) error {
	l.acquired++
	return nil
}

// testEnv bundles a processor over a real sqlite ops store and an
// in-memory content store.
type testEnv struct {
	store     *store.Store
	content   *contentstore.Memory
	campaigns *mockCampaignSource
	promos    *mockPromotionSource
	enricher  *mockEnricher
	shortener *mockShortener
	limiter   *countingLimiter
	processor *Processor
	gate      *Gate
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "offersync-pipeline-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	s, err := store.Open(filepath.Join(tmpDir, "ops.db"))
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
		os.RemoveAll(tmpDir)
	})

	if cfg.Market == "" {
		cfg.Market = "SE"
	}
	if cfg.WindowEnd == 0 {
		cfg.WindowEnd = 6
	}

	env := &testEnv{
		store:     s,
		content:   contentstore.NewMemory(),
		campaigns: &mockCampaignSource{},
		promos:    &mockPromotionSource{},
		enricher:  &mockEnricher{pending: map[string]bool{}},
		shortener: &mockShortener{},
		limiter:   &countingLimiter{},
	}
	env.processor = NewProcessor(cfg, ProcessorDeps{
		Store:     s,
		Content:   env.content,
		Campaigns: env.campaigns,
		Promos:    env.promos,
		Resolver:  brand.NewResolver(env.content, nil, 0, nil),
		Enricher:  env.enricher,
		Shortener: env.shortener,
		Limiter:   env.limiter,
	})
	env.gate = NewGate(s, cfg.WindowStart, cfg.WindowEnd)
	return env
}

// seedCampaigns loads n SE campaigns with distinct advertisers.
func (env *testEnv) seedCampaigns(n int) {
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("Store %c", 'A'+i)
		env.campaigns.advertisers = append(env.campaigns.advertisers, upstream.Advertiser{
			ID:          fmt.Sprintf("adv-%d", i),
			DisplayName: name,
			Markets:     map[string]bool{"SE": true},
		})
		env.campaigns.campaigns = append(env.campaigns.campaigns, upstream.Campaign{
			ID:             int64(100 + i),
			AdvertiserName: name,
			Market:         "SE",
			Description:    "10% off everything",
			TrackingLink:   "https://track.example/" + name,
		})
	}
}

// nightTime is 02:00 local, inside the default processing window.
func nightTime() time.Time {
	return time.Date(2025, 3, 1, 2, 0, 0, 0, time.Local)
}

// dayTime is 14:00 local, outside the window.
func dayTime() time.Time {
	return time.Date(2025, 3, 1, 14, 0, 0, 0, time.Local)
}
