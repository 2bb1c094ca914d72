package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/bahodirov07uz/shop/internal/domain/discount"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase.
type Product struct {
	ID             int64
	Name           string
	Slug           string
	Price          decimal.Decimal
	OldPrice       *decimal.Decimal
	CategoryID     *int64
	ManufacturerID int64
	Stock          int
	IsActive       bool
}

// Target returns the attributes discount scopes are matched against.
func (p *Product) Target() discount.Target {
	return discount.Target{
		ProductID:      p.ID,
		CategoryID:     p.CategoryID,
		ManufacturerID: p.ManufacturerID,
	}
}

// BasePrice returns the undiscounted list price.
func (p *Product) BasePrice() decimal.Decimal {
	return p.Price
}

// Filter narrows List results. Zero values mean no restriction.
type Filter struct {
	CategoryID     int64
	ManufacturerID int64
	ActiveOnly     bool
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context, f Filter) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	GetByIDs(ctx context.Context, ids []int64) ([]Product, error)
}
