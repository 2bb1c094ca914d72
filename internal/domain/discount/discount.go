package discount

import (
	"context"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Type enumerates how a discount value is interpreted.
type Type string

const (
	// TypePercentage treats Value as a percentage (0-100) of the evaluated amount.
	TypePercentage Type = "percentage"
	// TypeFixed treats Value as an absolute monetary amount.
	TypeFixed Type = "fixed"
)

// Valid reports whether t is a known discount type.
func (t Type) Valid() bool {
	return t == TypePercentage || t == TypeFixed
}

// Scope selects which products a product-level discount applies to.
type Scope string

const (
	ScopeAll          Scope = "all"
	ScopeCategory     Scope = "category"
	ScopeProduct      Scope = "product"
	ScopeManufacturer Scope = "manufacturer"
)

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	switch s {
	case ScopeAll, ScopeCategory, ScopeProduct, ScopeManufacturer:
		return true
	default:
		return false
	}
}

// Discount is an administrator-managed pricing rule. Discounts with
// IsAdditional=false form the product pool; IsAdditional=true discounts form
// the cart pool. The two pools never mix.
type Discount struct {
	ID             int64
	Name           string
	Type           Type
	Value          decimal.Decimal
	ApplyTo        Scope
	IsAdditional   bool
	MinOrderAmount decimal.Decimal
	// MaxOrderAmount is an inclusive upper bound. Nil or zero means unbounded.
	MaxOrderAmount *decimal.Decimal
	StartDate      time.Time
	EndDate        time.Time
	IsActive       bool
	CreatedAt      time.Time

	CategoryIDs     []int64
	ProductIDs      []int64
	ManufacturerIDs []int64
}

// ValidAt reports whether the discount is switched on and now falls inside
// its inclusive validity window.
func (d *Discount) ValidAt(now time.Time) bool {
	if !d.IsActive {
		return false
	}
	return !now.Before(d.StartDate) && !now.After(d.EndDate)
}

// AcceptsAmount reports whether amount satisfies the inclusive
// min/max order amount bounds.
func (d *Discount) AcceptsAmount(amount decimal.Decimal) bool {
	if amount.LessThan(d.MinOrderAmount) {
		return false
	}
	if d.MaxOrderAmount != nil && !d.MaxOrderAmount.IsZero() && amount.GreaterThan(*d.MaxOrderAmount) {
		return false
	}
	return true
}

// Matches reports whether a product-level discount's scope covers p.
// Unknown scopes never match.
func (d *Discount) Matches(p Target) bool {
	switch d.ApplyTo {
	case ScopeAll:
		return true
	case ScopeCategory:
		return p.CategoryID != nil && slices.Contains(d.CategoryIDs, *p.CategoryID)
	case ScopeProduct:
		return slices.Contains(d.ProductIDs, p.ProductID)
	case ScopeManufacturer:
		return slices.Contains(d.ManufacturerIDs, p.ManufacturerID)
	default:
		return false
	}
}

// Target identifies the product attributes that discount scopes match on.
type Target struct {
	ProductID      int64
	CategoryID     *int64
	ManufacturerID int64
}

// Applied describes the single discount chosen by a resolver.
type Applied struct {
	Discount *Discount
	Amount   decimal.Decimal
	Percent  decimal.Decimal
}

// Repository supplies currently valid discounts from one pool.
// Implementations return newest discounts first.
type Repository interface {
	ListValid(ctx context.Context, additional bool, asOf time.Time) ([]Discount, error)
}
