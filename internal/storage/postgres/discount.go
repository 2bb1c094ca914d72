package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/bahodirov07uz/shop/internal/domain/discount"
)

const (
	listValidDiscountsSQL = `SELECT d.id, d.name, d.discount_type, d.value, d.apply_to, d.is_additional,
		d.min_order_amount, d.max_order_amount, d.start_date, d.end_date, d.is_active, d.created_at,
		COALESCE((SELECT array_agg(category_id ORDER BY category_id) FROM discount_categories WHERE discount_id = d.id), '{}'),
		COALESCE((SELECT array_agg(product_id ORDER BY product_id) FROM discount_products WHERE discount_id = d.id), '{}'),
		COALESCE((SELECT array_agg(manufacturer_id ORDER BY manufacturer_id) FROM discount_manufacturers WHERE discount_id = d.id), '{}')
		FROM discounts d
		WHERE d.is_active AND d.is_additional = $1 AND d.start_date <= $2 AND d.end_date >= $2
		ORDER BY d.created_at DESC, d.id DESC`

	upsertDiscountSQL = `INSERT INTO discounts (name, discount_type, value, apply_to, is_additional,
		min_order_amount, max_order_amount, start_date, end_date, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (name) DO UPDATE SET
			discount_type = EXCLUDED.discount_type,
			value = EXCLUDED.value,
			apply_to = EXCLUDED.apply_to,
			is_additional = EXCLUDED.is_additional,
			min_order_amount = EXCLUDED.min_order_amount,
			max_order_amount = EXCLUDED.max_order_amount,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			is_active = EXCLUDED.is_active
		RETURNING id`

	clearDiscountCategoriesSQL    = `DELETE FROM discount_categories WHERE discount_id = $1`
	clearDiscountProductsSQL      = `DELETE FROM discount_products WHERE discount_id = $1`
	clearDiscountManufacturersSQL = `DELETE FROM discount_manufacturers WHERE discount_id = $1`

	linkDiscountCategoriesSQL = `INSERT INTO discount_categories (discount_id, category_id)
		SELECT $1, unnest($2::bigint[]) ON CONFLICT DO NOTHING`
	linkDiscountProductsSQL = `INSERT INTO discount_products (discount_id, product_id)
		SELECT $1, unnest($2::bigint[]) ON CONFLICT DO NOTHING`
	linkDiscountManufacturersSQL = `INSERT INTO discount_manufacturers (discount_id, manufacturer_id)
		SELECT $1, unnest($2::bigint[]) ON CONFLICT DO NOTHING`
)

var _ discount.Repository = (*DiscountRepository)(nil)

// DiscountRepository implements discount.Repository backed by PostgreSQL.
type DiscountRepository struct {
	db DB
}

// NewDiscountRepository returns a DiscountRepository that uses the given connection.
func NewDiscountRepository(db DB) *DiscountRepository {
	return &DiscountRepository{db: db}
}

// ListValid returns active discounts from one pool whose validity window
// contains asOf, newest first, with their scope membership sets.
func (r *DiscountRepository) ListValid(ctx context.Context, additional bool, asOf time.Time) ([]discount.Discount, error) {
	rows, err := r.db.Query(ctx, listValidDiscountsSQL, additional, asOf)
	if err != nil {
		return nil, errors.Wrap(err, "list valid discounts")
	}
	out, err := pgx.CollectRows(rows, scanDiscount)
	if err != nil {
		return nil, errors.Wrap(err, "scan discounts")
	}
	return out, nil
}

// Upsert creates or replaces a discount by name, including its scope
// membership sets. It returns the discount ID.
func (r *DiscountRepository) Upsert(ctx context.Context, d *discount.Discount) (int64, error) {
	var id int64
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, upsertDiscountSQL,
			d.Name, string(d.Type), d.Value, string(d.ApplyTo), d.IsAdditional,
			d.MinOrderAmount, d.MaxOrderAmount, d.StartDate, d.EndDate, d.IsActive,
		).Scan(&id); err != nil {
			return errors.Wrapf(err, "upsert discount %q", d.Name)
		}

		links := []struct {
			clear, link string
			ids         []int64
		}{
			{clearDiscountCategoriesSQL, linkDiscountCategoriesSQL, d.CategoryIDs},
			{clearDiscountProductsSQL, linkDiscountProductsSQL, d.ProductIDs},
			{clearDiscountManufacturersSQL, linkDiscountManufacturersSQL, d.ManufacturerIDs},
		}
		for _, l := range links {
			if _, err := tx.Exec(ctx, l.clear, id); err != nil {
				return errors.Wrapf(err, "clear scope of %q", d.Name)
			}
			if len(l.ids) == 0 {
				continue
			}
			if _, err := tx.Exec(ctx, l.link, id, l.ids); err != nil {
				return errors.Wrapf(err, "link scope of %q", d.Name)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	d.ID = id
	return id, nil
}

func scanDiscount(row pgx.CollectableRow) (discount.Discount, error) {
	var (
		d            discount.Discount
		discountType string
		applyTo      string
		maxAmount    *decimal.Decimal
	)
	err := row.Scan(
		&d.ID, &d.Name, &discountType, &d.Value, &applyTo, &d.IsAdditional,
		&d.MinOrderAmount, &maxAmount, &d.StartDate, &d.EndDate, &d.IsActive, &d.CreatedAt,
		&d.CategoryIDs, &d.ProductIDs, &d.ManufacturerIDs,
	)
	d.Type = discount.Type(discountType)
	d.ApplyTo = discount.Scope(applyTo)
	d.MaxOrderAmount = maxAmount
	return d, err
}
