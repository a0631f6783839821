// Package contentstore defines the brand/offer content collaborator consumed
// by the sync pipeline, and a Postgres implementation of it.
//
// The pipeline reads, creates, and updates brands; it never deletes them.
// Offers are keyed uniquely by their upstream external id — the existence
// check is the dedup boundary.
package contentstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a brand or offer does not exist.
var ErrNotFound = errors.New("contentstore: not found")

// Source tags recorded on brands.
const (
	SourceAddrevenue = "addrevenue"
	SourceAwin       = "awin"
)

// Offer types.
const (
	OfferTypeCode = "code"
	OfferTypeSale = "sale"
)

// Brand is a merchant entity offers are grouped under.
type Brand struct {
	ID            int64
	CanonicalName string
	Slug          string
	Description   string
	SourceTags    []string
	CreatedAt     time.Time
}

// Offer is one normalized discount/promotion record.
type Offer struct {
	ID             int64
	ExternalID     string
	AdvertiserName string
	Title          string
	Description    string
	Code           string
	TrackingURL    string
	ValidUntil     *time.Time
	Terms          []string
	WhyWeLove      []string
	Type           string
	BrandID        int64
	CreatedAt      time.Time
}

// Store is the content collaborator interface the pipeline depends on.
type Store interface {
	FindBrand(ctx context.Context, name string) (*Brand, error)
	ListBrands(ctx context.Context) ([]*Brand, error)
	CreateBrand(ctx context.Context, name, slug string) (*Brand, error)
	UpdateBrandField(ctx context.Context, id int64, field, value string) error
	AddBrandSourceTag(ctx context.Context, id int64, tag string) error

	FindOfferByExternalID(ctx context.Context, externalID string) (*Offer, error)
	// CreateOffer persists a new offer. Returns created=false without error
	// when an offer with the same external id already exists.
	CreateOffer(ctx context.Context, offer *Offer) (created bool, err error)
	AttachTaxonomy(ctx context.Context, offerID, brandID int64) error
}
