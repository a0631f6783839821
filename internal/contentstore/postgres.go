package contentstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres implements Store over a Postgres database using the pgx stdlib
// driver.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects to the content database and ensures the schema.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open content database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping content database: %w", err)
	}

	p := &Postgres{db: db}
	if err := p.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

// NewPostgres wraps an existing handle (for tests sharing a database).
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS brands (
	id BIGSERIAL PRIMARY KEY,
	canonical_name TEXT NOT NULL,
	slug TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	source_tags JSONB NOT NULL DEFAULT '[]',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_brands_name_ci ON brands (lower(canonical_name));

CREATE TABLE IF NOT EXISTS offers (
	id BIGSERIAL PRIMARY KEY,
	external_id TEXT NOT NULL UNIQUE,
	advertiser_name TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	code TEXT NOT NULL DEFAULT '',
	tracking_url TEXT NOT NULL,
	valid_until TIMESTAMPTZ,
	terms JSONB NOT NULL DEFAULT '[]',
	why_we_love JSONB NOT NULL DEFAULT '[]',
	offer_type TEXT NOT NULL,
	brand_id BIGINT REFERENCES brands(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`
	_, err := p.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// Ping verifies connectivity for the ops health endpoint.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *Postgres) FindBrand(ctx context.Context, name string) (*Brand, error) {
	const q = `
SELECT id, canonical_name, slug, description, source_tags, created_at
FROM brands WHERE lower(canonical_name) = lower($1)
`
	return scanBrand(p.db.QueryRowContext(ctx, q, name))
}

func (p *Postgres) ListBrands(ctx context.Context) ([]*Brand, error) {
	const q = `
SELECT id, canonical_name, slug, description, source_tags, created_at
FROM brands ORDER BY id
`
	rows, err := p.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var brands []*Brand
	for rows.Next() {
		b, err := scanBrand(rows)
		if err != nil {
			return nil, err
		}
		brands = append(brands, b)
	}
	return brands, rows.Err()
}

func (p *Postgres) CreateBrand(ctx context.Context, name, slug string) (*Brand, error) {
	const q = `
INSERT INTO brands (canonical_name, slug)
VALUES ($1, $2)
ON CONFLICT (slug) DO UPDATE SET slug = brands.slug
RETURNING id, canonical_name, slug, description, source_tags, created_at
`
	return scanBrand(p.db.QueryRowContext(ctx, q, name, slug))
}

func (p *Postgres) UpdateBrandField(ctx context.Context, id int64, field, value string) error {
	var column string
	switch field {
	case "description":
		column = "description"
	case "canonical_name":
		column = "canonical_name"
	default:
		return fmt.Errorf("contentstore: unknown brand field %q", field)
	}
	res, err := p.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE brands SET %s = $1 WHERE id = $2`, column), value, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) AddBrandSourceTag(ctx context.Context, id int64, tag string) error {
	const q = `
UPDATE brands
SET source_tags = source_tags || to_jsonb($1::text)
WHERE id = $2 AND NOT source_tags @> to_jsonb($1::text)
`
	_, err := p.db.ExecContext(ctx, q, tag, id)
	return err
}

func (p *Postgres) FindOfferByExternalID(ctx context.Context, externalID string) (*Offer, error) {
	const q = `
SELECT id, external_id, advertiser_name, title, description, code, tracking_url,
       valid_until, terms, why_we_love, offer_type, COALESCE(brand_id, 0), created_at
FROM offers WHERE external_id = $1
`
	var o Offer
	var termsJSON, loveJSON []byte
	err := p.db.QueryRowContext(ctx, q, externalID).Scan(
		&o.ID, &o.ExternalID, &o.AdvertiserName, &o.Title, &o.Description,
		&o.Code, &o.TrackingURL, &o.ValidUntil, &termsJSON, &loveJSON,
		&o.Type, &o.BrandID, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	json.Unmarshal(termsJSON, &o.Terms)
	json.Unmarshal(loveJSON, &o.WhyWeLove)
	return &o, nil
}

// CreateOffer inserts the offer; a duplicate external id is a no-op reported
// as created=false, matching the pipeline's dedup semantics.
func (p *Postgres) CreateOffer(ctx context.Context, offer *Offer) (bool, error) {
	termsJSON, _ := json.Marshal(offer.Terms)
	loveJSON, _ := json.Marshal(offer.WhyWeLove)

	const q = `
INSERT INTO offers (external_id, advertiser_name, title, description, code,
                    tracking_url, valid_until, terms, why_we_love, offer_type, brand_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, 0))
ON CONFLICT (external_id) DO NOTHING
RETURNING id
`
	err := p.db.QueryRowContext(ctx, q,
		offer.ExternalID, offer.AdvertiserName, offer.Title, offer.Description,
		offer.Code, offer.TrackingURL, offer.ValidUntil, termsJSON, loveJSON,
		offer.Type, offer.BrandID,
	).Scan(&offer.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (p *Postgres) AttachTaxonomy(ctx context.Context, offerID, brandID int64) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE offers SET brand_id = $1 WHERE id = $2`, brandID, offerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// rowScanner lets scanBrand work for both QueryRow and Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBrand(row rowScanner) (*Brand, error) {
	var b Brand
	var tagsJSON []byte
	err := row.Scan(&b.ID, &b.CanonicalName, &b.Slug, &b.Description, &tagsJSON, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	json.Unmarshal(tagsJSON, &b.SourceTags)
	return &b, nil
}
