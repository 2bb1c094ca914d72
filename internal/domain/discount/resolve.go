package discount

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	zero    = decimal.Zero
)

// ProductDiscount is the outcome of resolving the product pool for one product.
type ProductDiscount struct {
	OriginalPrice        decimal.Decimal
	DiscountedPrice      decimal.Decimal
	TotalDiscount        decimal.Decimal
	TotalDiscountPercent decimal.Decimal
	Applied              []Applied
}

// HasDiscount reports whether a discount was applied.
func (p ProductDiscount) HasDiscount() bool {
	return len(p.Applied) > 0
}

// CartDiscount is the outcome of resolving the cart pool for a subtotal.
type CartDiscount struct {
	Subtotal        decimal.Decimal
	FinalTotal      decimal.Decimal
	Discount        decimal.Decimal
	DiscountPercent decimal.Decimal
	Applied         []Applied
}

// ResolveProduct applies the single best product-level discount to
// basePrice.
//
// The best discount is the one with the numerically largest Value, compared
// without regard to its type: a fixed 50 beats a 40% discount even when the
// percentage would produce a lower price. Equal values keep input order.
func ResolveProduct(discounts []Discount, p Target, basePrice, orderAmount decimal.Decimal, now time.Time) ProductDiscount {
	candidates := make([]*Discount, 0, len(discounts))
	for i := range discounts {
		d := &discounts[i]
		if d.IsAdditional || !d.Type.Valid() || !d.ValidAt(now) {
			continue
		}
		if !d.AcceptsAmount(orderAmount) || !d.Matches(p) {
			continue
		}
		candidates = append(candidates, d)
	}

	if len(candidates) == 0 {
		return ProductDiscount{
			OriginalPrice:        basePrice,
			DiscountedPrice:      basePrice,
			TotalDiscount:        zero,
			TotalDiscountPercent: zero,
		}
	}

	best := pickHighest(candidates)

	// Negative values never raise the price; final stays in [0, base].
	var amount, percent decimal.Decimal
	switch best.Type {
	case TypePercentage:
		amount = floorAtZero(basePrice.Mul(best.Value).Div(hundred))
		percent = floorAtZero(best.Value)
	case TypeFixed:
		amount = floorAtZero(best.Value)
		percent = percentOf(amount, basePrice)
	}
	final := floorAtZero(basePrice.Sub(amount))

	total := basePrice.Sub(final)
	return ProductDiscount{
		OriginalPrice:        basePrice,
		DiscountedPrice:      final.Round(2),
		TotalDiscount:        total.Round(2),
		TotalDiscountPercent: percentOf(total.Round(2), basePrice),
		Applied: []Applied{{
			Discount: best,
			Amount:   amount.Round(2),
			Percent:  percent.Round(2),
		}},
	}
}

// ResolveCart applies the single best cart-level discount to subtotal. Only
// additional discounts scoped to all products take part; per-item discounts
// are expected to be already reflected in subtotal.
func ResolveCart(discounts []Discount, subtotal decimal.Decimal, now time.Time) CartDiscount {
	candidates := make([]*Discount, 0, len(discounts))
	for i := range discounts {
		d := &discounts[i]
		if !d.IsAdditional || d.ApplyTo != ScopeAll || !d.Type.Valid() || !d.ValidAt(now) {
			continue
		}
		if !d.AcceptsAmount(subtotal) {
			continue
		}
		candidates = append(candidates, d)
	}

	if len(candidates) == 0 {
		return CartDiscount{
			Subtotal:        subtotal,
			FinalTotal:      subtotal,
			Discount:        zero,
			DiscountPercent: zero,
		}
	}

	best := pickHighest(candidates)

	var amount, percent decimal.Decimal
	switch best.Type {
	case TypePercentage:
		amount = subtotal.Mul(best.Value).Div(hundred)
		percent = best.Value
	case TypeFixed:
		amount = decimal.Min(best.Value, subtotal)
		percent = percentOf(amount, subtotal)
	}
	amount = floorAtZero(decimal.Min(amount, subtotal))

	return CartDiscount{
		Subtotal:        subtotal,
		FinalTotal:      floorAtZero(subtotal.Sub(amount).Round(2)),
		Discount:        amount.Round(2),
		DiscountPercent: percentOf(amount, subtotal),
		Applied: []Applied{{
			Discount: best,
			Amount:   amount.Round(2),
			Percent:  percent.Round(2),
		}},
	}
}

// pickHighest returns the candidate with the largest Value. SortStableFunc
// keeps the repository order for ties.
func pickHighest(candidates []*Discount) *Discount {
	slices.SortStableFunc(candidates, func(a, b *Discount) int {
		return b.Value.Cmp(a.Value)
	})
	return candidates[0]
}

// percentOf returns part/whole*100 rounded to 2 places, or zero when whole
// is not positive.
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return zero
	}
	return part.Div(whole).Mul(hundred).Round(2)
}

// floorAtZero clamps negative values to zero.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return zero
	}
	return d
}
