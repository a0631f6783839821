// Package brand resolves raw advertiser names against existing brand
// entities: exact lookup first, then a fuzzy scan, creating a new brand when
// nothing matches.
package brand

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rebately/offersync/internal/contentstore"
)

// DefaultFuzzyThreshold is the similarity above which a candidate name is
// considered the same brand.
const DefaultFuzzyThreshold = 0.80

// Notifier receives brand lifecycle events for the external notification
// collaborator.
type Notifier interface {
	BrandCreated(ctx context.Context, b *contentstore.Brand)
}

// NopNotifier discards events.
type NopNotifier struct{}

func (NopNotifier) BrandCreated(ctx context.Context, b *contentstore.Brand) {}

// Resolver matches advertiser names to brands.
//
// The fuzzy pass is a deliberate O(existing-brand-count) linear scan; brand
// cardinality is small relative to offer volume.
type Resolver struct {
	store     contentstore.Store
	notifier  Notifier
	threshold float64
	logger    *slog.Logger
}

// NewResolver creates a resolver. threshold <= 0 uses the default.
func NewResolver(store contentstore.Store, notifier Notifier, threshold float64, logger *slog.Logger) *Resolver {
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, notifier: notifier, threshold: threshold, logger: logger}
}

// Resolve returns the brand for rawName, creating one when no existing brand
// matches exactly or fuzzily.
func (r *Resolver) Resolve(ctx context.Context, rawName string) (*contentstore.Brand, error) {
	name := CleanName(rawName)
	if name == "" {
		return nil, fmt.Errorf("brand: empty name after cleaning %q", rawName)
	}

	// Exact case-insensitive lookup.
	b, err := r.store.FindBrand(ctx, name)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, contentstore.ErrNotFound) {
		return nil, fmt.Errorf("brand lookup failed: %w", err)
	}

	// Fuzzy pass over every existing brand.
	existing, err := r.store.ListBrands(ctx)
	if err != nil {
		return nil, fmt.Errorf("brand scan failed: %w", err)
	}

	candidate := normalizeName(name)
	var best *contentstore.Brand
	var bestScore float64
	for _, eb := range existing {
		norm := normalizeName(eb.CanonicalName)
		if norm == candidate {
			return eb, nil
		}
		if score := similarity(candidate, norm); score > bestScore {
			bestScore = score
			best = eb
		}
	}
	if best != nil && bestScore > r.threshold {
		r.logger.Info("fuzzy brand match",
			"name", name, "matched", best.CanonicalName, "score", bestScore)
		return best, nil
	}

	created, err := r.store.CreateBrand(ctx, name, Slugify(name))
	if err != nil {
		return nil, fmt.Errorf("brand create failed: %w", err)
	}
	r.logger.Info("brand created", "name", name, "slug", created.Slug)
	r.notifier.BrandCreated(ctx, created)
	return created, nil
}

// CleanName strips trailing two-letter region-code tokens and trims the
// result. "Royal Design SE" and "Boozt NO SE" both clean to the bare name.
func CleanName(raw string) string {
	fields := strings.Fields(raw)
	for len(fields) > 1 {
		last := fields[len(fields)-1]
		if len(last) != 2 || last != strings.ToUpper(last) || !isLetters(last) {
			break
		}
		fields = fields[:len(fields)-1]
	}
	return strings.Join(fields, " ")
}

func isLetters(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
