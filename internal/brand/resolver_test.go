package brand

import (
	"context"
	"log/slog"
	"testing"

	"github.com/rebately/offersync/internal/contentstore"
)

type recordingNotifier struct {
	created []string
}

func (n *recordingNotifier) BrandCreated(ctx context.Context, b *contentstore.Brand) {
	n.created = append(n.created, b.CanonicalName)
}

func newTestResolver(store contentstore.Store) (*Resolver, *recordingNotifier) {
	n := &recordingNotifier{}
	return NewResolver(store, n, 0, slog.Default()), n
}

func TestCleanName_StripsTrailingRegionCodes(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Royal Design SE", "Royal Design"},
		{"Boozt NO SE", "Boozt"},
		{"Nordic Nest", "Nordic Nest"},
		{"SE", "SE"},               // never strip down to nothing
		{"H&M se", "H&M se"},       // lower case token is part of the name
		{"Lensway DK ", "Lensway"},
	}
	for _, tt := range tests {
		if got := CleanName(tt.raw); got != tt.want {
			t.Errorf("CleanName(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Nordic Nest", "nordic-nest"},
		{"Åhléns", "ahlens"},
		{"H&M Home", "h-m-home"},
		{"  Boozt  ", "boozt"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.name); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestSimilarity_Symmetric(t *testing.T) {
	a, b := normalizeName("Nordic Nest"), normalizeName("nordicnest.se")
	if similarity(a, b) != similarity(b, a) {
		t.Error("similarity must be symmetric")
	}
}

func TestResolve_ExactMatchWins(t *testing.T) {
	ctx := context.Background()
	store := contentstore.NewMemory()
	existing, _ := store.CreateBrand(ctx, "Nordic Nest", "nordic-nest")

	r, n := newTestResolver(store)
	got, err := r.Resolve(ctx, "nordic nest SE")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ID != existing.ID {
		t.Errorf("resolved to brand %d, want %d", got.ID, existing.ID)
	}
	if len(n.created) != 0 {
		t.Errorf("unexpected brand-created events: %v", n.created)
	}
}

func TestResolve_FuzzyThreshold(t *testing.T) {
	ctx := context.Background()

	// Existing normalized name "brandstore" (10 chars). Appending k extra
	// chars to a candidate that contains it as a subsequence gives
	// similarity 20/(20+k): k=3 -> 0.87 (match), k=5 -> 0.80 exactly (no
	// match, threshold is strict), k=6 -> 0.77 (no match).
	tests := []struct {
		candidate string
		wantSame  bool
	}{
		{"Brandstore xyz", true},
		{"Brandstore vwxyz", false},
		{"Brandstore uvwxyz", false},
	}

	for _, tt := range tests {
		t.Run(tt.candidate, func(t *testing.T) {
			store := contentstore.NewMemory()
			existing, _ := store.CreateBrand(ctx, "Brandstore", "brandstore")
			r, _ := newTestResolver(store)

			got, err := r.Resolve(ctx, tt.candidate)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if same := got.ID == existing.ID; same != tt.wantSame {
				t.Errorf("Resolve(%q) same-brand=%v, want %v", tt.candidate, same, tt.wantSame)
			}
		})
	}
}

func TestResolve_ExactNormalizedMatchShortCircuits(t *testing.T) {
	ctx := context.Background()
	store := contentstore.NewMemory()
	existing, _ := store.CreateBrand(ctx, "Nordic-Nest", "nordic-nest")

	r, _ := newTestResolver(store)
	got, err := r.Resolve(ctx, "nordicnest")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != existing.ID {
		t.Errorf("normalized-equal names must resolve to the same brand")
	}
}

func TestResolve_CreatesAndNotifies(t *testing.T) {
	ctx := context.Background()
	store := contentstore.NewMemory()

	r, n := newTestResolver(store)
	got, err := r.Resolve(ctx, "Åhléns SE")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.CanonicalName != "Åhléns" {
		t.Errorf("canonical name = %q", got.CanonicalName)
	}
	if got.Slug != "ahlens" {
		t.Errorf("slug = %q", got.Slug)
	}
	if len(n.created) != 1 || n.created[0] != "Åhléns" {
		t.Errorf("brand-created events = %v", n.created)
	}
}
