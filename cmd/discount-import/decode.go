package main

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/bahodirov07uz/shop/internal/domain/discount"
)

// decodeDiscount reads one JSON line. Amounts may be strings or numbers;
// dates are RFC 3339 strings.
//
//	{"name":"Spring sale","type":"percentage","value":"10","apply_to":"category",
//	 "category_ids":[4],"start":"2026-03-01T00:00:00Z","end":"2026-03-31T23:59:59Z"}
func decodeDiscount(d *jx.Decoder) (discount.Discount, error) {
	v := discount.Discount{
		ApplyTo:        discount.ScopeAll,
		MinOrderAmount: decimal.Zero,
		IsActive:       true,
	}
	var hasStart, hasEnd bool
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			v.Name, err = d.Str()
		case "type":
			var s string
			s, err = d.Str()
			v.Type = discount.Type(s)
		case "value":
			v.Value, err = decodeAmount(d)
		case "apply_to":
			var s string
			s, err = d.Str()
			v.ApplyTo = discount.Scope(s)
		case "additional":
			v.IsAdditional, err = d.Bool()
		case "active":
			v.IsActive, err = d.Bool()
		case "min_order_amount":
			v.MinOrderAmount, err = decodeAmount(d)
		case "max_order_amount":
			if d.Next() == jx.Null {
				return d.Null()
			}
			var limit decimal.Decimal
			limit, err = decodeAmount(d)
			v.MaxOrderAmount = &limit
		case "start":
			v.StartDate, err = decodeTime(d)
			hasStart = true
		case "end":
			v.EndDate, err = decodeTime(d)
			hasEnd = true
		case "category_ids":
			v.CategoryIDs, err = decodeIDs(d)
		case "product_ids":
			v.ProductIDs, err = decodeIDs(d)
		case "manufacturer_ids":
			v.ManufacturerIDs, err = decodeIDs(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	if err != nil {
		return v, err
	}

	switch {
	case v.Name == "":
		return v, errors.New("name is required")
	case !v.Type.Valid():
		return v, errors.Errorf("unknown type %q", v.Type)
	case !v.ApplyTo.Valid():
		return v, errors.Errorf("unknown scope %q", v.ApplyTo)
	case v.Value.IsNegative():
		return v, errors.New("value must not be negative")
	case !hasStart || !hasEnd:
		return v, errors.New("start and end are required")
	case v.EndDate.Before(v.StartDate):
		return v, errors.New("end is before start")
	}
	return v, nil
}

func decodeAmount(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(n.String())
	default:
		return decimal.Zero, errors.Errorf("unexpected %s", d.Next())
	}
}

func decodeTime(d *jx.Decoder) (time.Time, error) {
	s, err := d.Str()
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, s)
}

func decodeIDs(d *jx.Decoder) ([]int64, error) {
	var out []int64
	err := d.Arr(func(d *jx.Decoder) error {
		id, err := d.Int64()
		out = append(out, id)
		return err
	})
	return out, err
}
