package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Priceable is anything the product pool can be resolved against.
type Priceable interface {
	Target() Target
	BasePrice() decimal.Decimal
}

// Pricer exposes the pricing entry points used by catalog and checkout code.
// It reads discounts through a Repository and resolves them at the
// injected clock's current time.
type Pricer struct {
	repo Repository
	now  func() time.Time
}

// NewPricer creates a Pricer that uses time.Now as its clock.
func NewPricer(repo Repository) *Pricer {
	return &Pricer{repo: repo, now: time.Now}
}

// NewPricerWithClock creates a Pricer with a custom clock.
func NewPricerWithClock(repo Repository, now func() time.Time) *Pricer {
	return &Pricer{repo: repo, now: now}
}

// ProductCurrentPrice returns p's price after the best product discount.
func (s *Pricer) ProductCurrentPrice(ctx context.Context, p Priceable) (decimal.Decimal, error) {
	info, err := s.ProductDiscountInfo(ctx, p, decimal.Zero)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return info.DiscountedPrice, nil
}

// ProductDiscountInfo resolves the product pool for p evaluated against
// orderAmount.
func (s *Pricer) ProductDiscountInfo(ctx context.Context, p Priceable, orderAmount decimal.Decimal) (ProductDiscount, error) {
	now := s.now()
	discounts, err := s.repo.ListValid(ctx, false, now)
	if err != nil {
		return ProductDiscount{}, errors.Wrap(err, "list product discounts")
	}
	return ResolveProduct(discounts, p.Target(), p.BasePrice(), orderAmount, now), nil
}

// CartDiscountInfo resolves the cart pool for subtotal.
func (s *Pricer) CartDiscountInfo(ctx context.Context, subtotal decimal.Decimal) (CartDiscount, error) {
	now := s.now()
	discounts, err := s.repo.ListValid(ctx, true, now)
	if err != nil {
		return CartDiscount{}, errors.Wrap(err, "list cart discounts")
	}
	return ResolveCart(discounts, subtotal, now), nil
}

// Snapshot loads both pools once so a multi-item computation prices every
// line against the same discounts and the same instant.
func (s *Pricer) Snapshot(ctx context.Context) (*Snapshot, error) {
	now := s.now()
	products, err := s.repo.ListValid(ctx, false, now)
	if err != nil {
		return nil, errors.Wrap(err, "list product discounts")
	}
	cart, err := s.repo.ListValid(ctx, true, now)
	if err != nil {
		return nil, errors.Wrap(err, "list cart discounts")
	}
	return &Snapshot{Now: now, products: products, cart: cart}, nil
}

// Snapshot is an immutable view of both discount pools at a fixed instant.
type Snapshot struct {
	Now      time.Time
	products []Discount
	cart     []Discount
}

// NewSnapshot builds a Snapshot from already loaded pools.
func NewSnapshot(now time.Time, products, cart []Discount) *Snapshot {
	return &Snapshot{Now: now, products: products, cart: cart}
}

// Product resolves the product pool for p.
func (s *Snapshot) Product(p Priceable, orderAmount decimal.Decimal) ProductDiscount {
	return ResolveProduct(s.products, p.Target(), p.BasePrice(), orderAmount, s.Now)
}

// Cart resolves the cart pool for subtotal.
func (s *Snapshot) Cart(subtotal decimal.Decimal) CartDiscount {
	return ResolveCart(s.cart, subtotal, s.Now)
}
