package postgres

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/bahodirov07uz/shop/internal/domain/product"
)

const (
	upsertManufacturerSQL = `INSERT INTO manufacturers (name, slug) VALUES ($1, $2)
		ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`

	upsertCategorySQL = `INSERT INTO categories (name, slug) VALUES ($1, $2)
		ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`

	upsertProductSQL = `INSERT INTO products
		(name, slug, price, old_price, category_id, manufacturer_id, stock, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (slug) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			old_price = EXCLUDED.old_price,
			category_id = EXCLUDED.category_id,
			manufacturer_id = EXCLUDED.manufacturer_id,
			stock = EXCLUDED.stock,
			is_active = EXCLUDED.is_active
		RETURNING id`
)

// UpsertManufacturer creates or renames a manufacturer keyed by slug.
func (r *ProductRepository) UpsertManufacturer(ctx context.Context, name, slug string) (int64, error) {
	var id int64
	if err := r.db.QueryRow(ctx, upsertManufacturerSQL, name, slug).Scan(&id); err != nil {
		return 0, errors.Wrapf(err, "upsert manufacturer %q", slug)
	}
	return id, nil
}

// UpsertCategory creates or renames a category keyed by slug.
func (r *ProductRepository) UpsertCategory(ctx context.Context, name, slug string) (int64, error) {
	var id int64
	if err := r.db.QueryRow(ctx, upsertCategorySQL, name, slug).Scan(&id); err != nil {
		return 0, errors.Wrapf(err, "upsert category %q", slug)
	}
	return id, nil
}

// Upsert creates or updates a product keyed by slug and stores the
// assigned ID in p.
func (r *ProductRepository) Upsert(ctx context.Context, p *product.Product) error {
	if err := r.db.QueryRow(ctx, upsertProductSQL,
		p.Name, p.Slug, p.Price, p.OldPrice, p.CategoryID, p.ManufacturerID, int32(p.Stock), p.IsActive,
	).Scan(&p.ID); err != nil {
		return errors.Wrapf(err, "upsert product %q", p.Slug)
	}
	return nil
}
