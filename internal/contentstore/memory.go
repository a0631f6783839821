package contentstore

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Memory is an in-memory Store used by tests and the dry-run mode.
type Memory struct {
	mu      sync.Mutex
	brands  []*Brand
	offers  []*Offer
	nextID  int64
	nowFunc func() time.Time
}

// NewMemory creates an empty in-memory content store.
func NewMemory() *Memory {
	return &Memory{nextID: 1, nowFunc: time.Now}
}

func (m *Memory) FindBrand(ctx context.Context, name string) (*Brand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.brands {
		if strings.EqualFold(b.CanonicalName, name) {
			copied := *b
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListBrands(ctx context.Context) ([]*Brand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Brand, len(m.brands))
	for i, b := range m.brands {
		copied := *b
		out[i] = &copied
	}
	return out, nil
}

func (m *Memory) CreateBrand(ctx context.Context, name, slug string) (*Brand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.brands {
		if b.Slug == slug {
			copied := *b
			return &copied, nil
		}
	}
	b := &Brand{
		ID:            m.nextID,
		CanonicalName: name,
		Slug:          slug,
		CreatedAt:     m.nowFunc(),
	}
	m.nextID++
	m.brands = append(m.brands, b)
	copied := *b
	return &copied, nil
}

func (m *Memory) UpdateBrandField(ctx context.Context, id int64, field, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.brands {
		if b.ID == id {
			switch field {
			case "description":
				b.Description = value
			case "canonical_name":
				b.CanonicalName = value
			}
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) AddBrandSourceTag(ctx context.Context, id int64, tag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.brands {
		if b.ID == id {
			for _, t := range b.SourceTags {
				if t == tag {
					return nil
				}
			}
			b.SourceTags = append(b.SourceTags, tag)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) FindOfferByExternalID(ctx context.Context, externalID string) (*Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.offers {
		if o.ExternalID == externalID {
			copied := *o
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) CreateOffer(ctx context.Context, offer *Offer) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.offers {
		if o.ExternalID == offer.ExternalID {
			return false, nil
		}
	}
	stored := *offer
	stored.ID = m.nextID
	stored.CreatedAt = m.nowFunc()
	m.nextID++
	m.offers = append(m.offers, &stored)
	offer.ID = stored.ID
	return true, nil
}

func (m *Memory) AttachTaxonomy(ctx context.Context, offerID, brandID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.offers {
		if o.ID == offerID {
			o.BrandID = brandID
			return nil
		}
	}
	return ErrNotFound
}

// Offers returns a snapshot of stored offers, in creation order.
func (m *Memory) Offers() []*Offer {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Offer, len(m.offers))
	for i, o := range m.offers {
		copied := *o
		out[i] = &copied
	}
	return out
}
