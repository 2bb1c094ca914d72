package main

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/bahodirov07uz/shop/internal/domain/discount"
	"github.com/bahodirov07uz/shop/internal/domain/order"
	"github.com/bahodirov07uz/shop/internal/domain/product"
)

// catalog is the seed file layout. Products and discounts reference
// manufacturers, categories and products by slug.
type catalog struct {
	Manufacturers []namedSlug    `yaml:"manufacturers"`
	Categories    []namedSlug    `yaml:"categories"`
	Products      []productEntry `yaml:"products"`
	Discounts     []discountYAML `yaml:"discounts"`
	Rules         []ruleEntry    `yaml:"rules"`
}

type namedSlug struct {
	Name string `yaml:"name"`
	Slug string `yaml:"slug"`
}

type productEntry struct {
	Name         string `yaml:"name"`
	Slug         string `yaml:"slug"`
	Price        string `yaml:"price"`
	OldPrice     string `yaml:"old_price"`
	Category     string `yaml:"category"`
	Manufacturer string `yaml:"manufacturer"`
	Stock        int    `yaml:"stock"`
	Inactive     bool   `yaml:"inactive"`
}

type discountYAML struct {
	Name           string   `yaml:"name"`
	Type           string   `yaml:"type"`
	Value          string   `yaml:"value"`
	ApplyTo        string   `yaml:"apply_to"`
	Additional     bool     `yaml:"additional"`
	MinOrderAmount string   `yaml:"min_order_amount"`
	MaxOrderAmount string   `yaml:"max_order_amount"`
	Start          string   `yaml:"start"`
	End            string   `yaml:"end"`
	Inactive       bool     `yaml:"inactive"`
	Categories     []string `yaml:"categories"`
	Products       []string `yaml:"products"`
	Manufacturers  []string `yaml:"manufacturers"`
}

type ruleEntry struct {
	Status    string `yaml:"status"`
	DaysAfter int    `yaml:"days_after"`
	Priority  int    `yaml:"priority"`
	Immediate bool   `yaml:"immediate"`
	Inactive  bool   `yaml:"inactive"`
}

// ids maps slugs to database identifiers assigned while seeding.
type ids struct {
	manufacturers map[string]int64
	categories    map[string]int64
	products      map[string]int64
}

func parseCatalog(data []byte) (*catalog, error) {
	var c catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(err, "parse catalog")
	}
	return &c, nil
}

func (e productEntry) toProduct(ref ids) (*product.Product, error) {
	price, err := decimal.NewFromString(e.Price)
	if err != nil {
		return nil, errors.Wrapf(err, "product %q: price", e.Slug)
	}
	p := &product.Product{
		Name:     e.Name,
		Slug:     e.Slug,
		Price:    price,
		Stock:    e.Stock,
		IsActive: !e.Inactive,
	}
	if e.OldPrice != "" {
		old, err := decimal.NewFromString(e.OldPrice)
		if err != nil {
			return nil, errors.Wrapf(err, "product %q: old price", e.Slug)
		}
		p.OldPrice = &old
	}
	mid, ok := ref.manufacturers[e.Manufacturer]
	if !ok {
		return nil, errors.Errorf("product %q: unknown manufacturer %q", e.Slug, e.Manufacturer)
	}
	p.ManufacturerID = mid
	if e.Category != "" {
		cid, ok := ref.categories[e.Category]
		if !ok {
			return nil, errors.Errorf("product %q: unknown category %q", e.Slug, e.Category)
		}
		p.CategoryID = &cid
	}
	return p, nil
}

// toDiscount converts an entry. Missing dates select a window of one year
// starting at now.
func (e discountYAML) toDiscount(ref ids, now time.Time) (*discount.Discount, error) {
	d := &discount.Discount{
		Name:           e.Name,
		Type:           discount.Type(e.Type),
		ApplyTo:        discount.Scope(e.ApplyTo),
		IsAdditional:   e.Additional,
		MinOrderAmount: decimal.Zero,
		StartDate:      now,
		EndDate:        now.AddDate(1, 0, 0),
		IsActive:       !e.Inactive,
	}
	if d.ApplyTo == "" {
		d.ApplyTo = discount.ScopeAll
	}
	if !d.Type.Valid() {
		return nil, errors.Errorf("discount %q: unknown type %q", e.Name, e.Type)
	}
	if !d.ApplyTo.Valid() {
		return nil, errors.Errorf("discount %q: unknown scope %q", e.Name, e.ApplyTo)
	}

	var err error
	if d.Value, err = decimal.NewFromString(e.Value); err != nil {
		return nil, errors.Wrapf(err, "discount %q: value", e.Name)
	}
	if e.MinOrderAmount != "" {
		if d.MinOrderAmount, err = decimal.NewFromString(e.MinOrderAmount); err != nil {
			return nil, errors.Wrapf(err, "discount %q: min order amount", e.Name)
		}
	}
	if e.MaxOrderAmount != "" {
		limit, err := decimal.NewFromString(e.MaxOrderAmount)
		if err != nil {
			return nil, errors.Wrapf(err, "discount %q: max order amount", e.Name)
		}
		d.MaxOrderAmount = &limit
	}
	if e.Start != "" {
		if d.StartDate, err = time.Parse(time.RFC3339, e.Start); err != nil {
			return nil, errors.Wrapf(err, "discount %q: start", e.Name)
		}
	}
	if e.End != "" {
		if d.EndDate, err = time.Parse(time.RFC3339, e.End); err != nil {
			return nil, errors.Wrapf(err, "discount %q: end", e.Name)
		}
	}

	for _, l := range []struct {
		kind  string
		slugs []string
		from  map[string]int64
		dst   *[]int64
	}{
		{"category", e.Categories, ref.categories, &d.CategoryIDs},
		{"product", e.Products, ref.products, &d.ProductIDs},
		{"manufacturer", e.Manufacturers, ref.manufacturers, &d.ManufacturerIDs},
	} {
		for _, slug := range l.slugs {
			id, ok := l.from[slug]
			if !ok {
				return nil, errors.Errorf("discount %q: unknown %s %q", e.Name, l.kind, slug)
			}
			*l.dst = append(*l.dst, id)
		}
	}
	return d, nil
}

func (e ruleEntry) toRule() (*order.Rule, error) {
	r := &order.Rule{
		Status:        order.Status(e.Status),
		DaysAfter:     e.DaysAfter,
		OrderPriority: e.Priority,
		IsActive:      !e.Inactive,
		Immediate:     e.Immediate,
	}
	if !r.Status.Valid() {
		return nil, errors.Errorf("rule: unknown status %q", e.Status)
	}
	if r.DaysAfter < 0 {
		return nil, errors.Errorf("rule %q: negative days_after", e.Status)
	}
	return r, nil
}
