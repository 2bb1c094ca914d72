package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/bahodirov07uz/shop/internal/domain/discount"
	"github.com/bahodirov07uz/shop/internal/domain/order"
	"github.com/bahodirov07uz/shop/internal/domain/product"
)

const maxBodySize = 1 << 20

// Money and percentages are encoded as two-decimal strings.
func money(e *jx.Encoder, v decimal.Decimal) {
	e.Str(v.StringFixed(2))
}

func timestamp(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}

func encodeApplied(e *jx.Encoder, applied []discount.Applied) {
	e.Arr(func(e *jx.Encoder) {
		for _, a := range applied {
			e.Obj(func(e *jx.Encoder) {
				e.Field("id", func(e *jx.Encoder) { e.Int64(a.Discount.ID) })
				e.Field("name", func(e *jx.Encoder) { e.Str(a.Discount.Name) })
				e.Field("type", func(e *jx.Encoder) { e.Str(string(a.Discount.Type)) })
				e.Field("value", func(e *jx.Encoder) { money(e, a.Discount.Value) })
				e.Field("amount", func(e *jx.Encoder) { money(e, a.Amount) })
				e.Field("percent", func(e *jx.Encoder) { money(e, a.Percent) })
			})
		}
	})
}

func encodeProduct(e *jx.Encoder, p *product.Product, info discount.ProductDiscount) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(p.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("slug", func(e *jx.Encoder) { e.Str(p.Slug) })
		e.Field("price", func(e *jx.Encoder) { money(e, p.Price) })
		if p.OldPrice != nil {
			e.Field("old_price", func(e *jx.Encoder) { money(e, *p.OldPrice) })
		}
		if p.CategoryID != nil {
			e.Field("category_id", func(e *jx.Encoder) { e.Int64(*p.CategoryID) })
		}
		e.Field("manufacturer_id", func(e *jx.Encoder) { e.Int64(p.ManufacturerID) })
		e.Field("stock", func(e *jx.Encoder) { e.Int(p.Stock) })
		e.Field("current_price", func(e *jx.Encoder) { money(e, info.DiscountedPrice) })
		e.Field("discount", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("has_discount", func(e *jx.Encoder) { e.Bool(info.HasDiscount()) })
				e.Field("original_price", func(e *jx.Encoder) { money(e, info.OriginalPrice) })
				e.Field("discounted_price", func(e *jx.Encoder) { money(e, info.DiscountedPrice) })
				e.Field("total_discount", func(e *jx.Encoder) { money(e, info.TotalDiscount) })
				e.Field("total_discount_percent", func(e *jx.Encoder) { money(e, info.TotalDiscountPercent) })
				e.Field("applied", func(e *jx.Encoder) { encodeApplied(e, info.Applied) })
			})
		})
	})
}

func encodeItems(e *jx.Encoder, items []order.Item) {
	e.Arr(func(e *jx.Encoder) {
		for _, it := range items {
			e.Obj(func(e *jx.Encoder) {
				e.Field("product_id", func(e *jx.Encoder) { e.Int64(it.ProductID) })
				e.Field("name", func(e *jx.Encoder) { e.Str(it.Name) })
				e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
				e.Field("original_price", func(e *jx.Encoder) { money(e, it.OriginalPrice) })
				e.Field("price", func(e *jx.Encoder) { money(e, it.Price) })
				e.Field("discount_amount", func(e *jx.Encoder) { money(e, it.DiscountAmount) })
				e.Field("line_total", func(e *jx.Encoder) { money(e, it.LineTotal()) })
			})
		}
	})
}

func encodeQuote(e *jx.Encoder, q *order.Quote) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("items", func(e *jx.Encoder) { encodeItems(e, q.Items) })
		e.Field("subtotal", func(e *jx.Encoder) { money(e, q.Subtotal) })
		e.Field("discount", func(e *jx.Encoder) { money(e, q.Cart.Discount) })
		e.Field("discount_percent", func(e *jx.Encoder) { money(e, q.Cart.DiscountPercent) })
		e.Field("applied", func(e *jx.Encoder) { encodeApplied(e, q.Cart.Applied) })
		e.Field("delivery_type", func(e *jx.Encoder) { e.Str(string(q.DeliveryType)) })
		e.Field("delivery_cost", func(e *jx.Encoder) { money(e, q.DeliveryCost) })
		e.Field("document_type", func(e *jx.Encoder) { e.Str(string(q.DocumentType)) })
		e.Field("document_cost", func(e *jx.Encoder) { money(e, q.DocumentCost) })
		e.Field("total", func(e *jx.Encoder) { money(e, q.Total) })
	})
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
		e.Field("number", func(e *jx.Encoder) { e.Str(o.Number) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(o.Status)) })
		e.Field("items", func(e *jx.Encoder) { encodeItems(e, o.Items) })
		e.Field("subtotal", func(e *jx.Encoder) { money(e, o.Subtotal) })
		e.Field("discount_amount", func(e *jx.Encoder) { money(e, o.DiscountAmount) })
		e.Field("discount_percent", func(e *jx.Encoder) { money(e, o.DiscountPercent) })
		e.Field("delivery_type", func(e *jx.Encoder) { e.Str(string(o.DeliveryType)) })
		e.Field("delivery_cost", func(e *jx.Encoder) { money(e, o.DeliveryCost) })
		e.Field("document_type", func(e *jx.Encoder) { e.Str(string(o.DocumentType)) })
		e.Field("document_cost", func(e *jx.Encoder) { money(e, o.DocumentCost) })
		e.Field("total", func(e *jx.Encoder) { money(e, o.Total) })
		e.Field("shipping_address", func(e *jx.Encoder) { e.Str(o.ShippingAddress) })
		e.Field("notes", func(e *jx.Encoder) { e.Str(o.Notes) })
		e.Field("created_at", func(e *jx.Encoder) { timestamp(e, o.CreatedAt) })
		if o.LastStatusUpdate != nil {
			e.Field("last_status_update", func(e *jx.Encoder) { timestamp(e, *o.LastStatusUpdate) })
		}
		if o.History != nil {
			e.Field("history", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, c := range o.History {
						e.Obj(func(e *jx.Encoder) {
							e.Field("status", func(e *jx.Encoder) { e.Str(string(c.Status)) })
							e.Field("notes", func(e *jx.Encoder) { e.Str(c.Notes) })
							e.Field("created_at", func(e *jx.Encoder) { timestamp(e, c.CreatedAt) })
						})
					}
				})
			})
		}
	})
}

// cartRequest is the body shared by the quote and checkout endpoints.
type cartRequest struct {
	Items           []order.LineRequest
	DeliveryType    order.DeliveryType
	DocumentType    order.DocumentType
	ShippingAddress string
	Notes           string
}

func decodeCart(d *jx.Decoder) (cartRequest, error) {
	var req cartRequest
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				line, err := decodeLine(d)
				req.Items = append(req.Items, line)
				return err
			})
		case "delivery_type":
			var s string
			s, err = d.Str()
			req.DeliveryType = order.DeliveryType(s)
		case "document_type":
			var s string
			s, err = d.Str()
			req.DocumentType = order.DocumentType(s)
		case "shipping_address":
			req.ShippingAddress, err = d.Str()
		case "notes":
			req.Notes, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return req, err
}

func decodeLine(d *jx.Decoder) (order.LineRequest, error) {
	var line order.LineRequest
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "product_id":
			line.ProductID, err = d.Int64()
		case "quantity":
			line.Quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	return line, err
}

type statusRequest struct {
	Status order.Status
	Note   string
}

func decodeStatus(d *jx.Decoder) (statusRequest, error) {
	var req statusRequest
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "status":
			var s string
			s, err = d.Str()
			req.Status = order.Status(s)
		case "note":
			req.Note, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return req, err
}

// decodeBody decodes the request body with fn, reporting malformed input as
// a bad request.
func decodeBody[T any](w http.ResponseWriter, r *http.Request, fn func(d *jx.Decoder) (T, error)) (T, error) {
	d := jx.Decode(http.MaxBytesReader(w, r.Body, maxBodySize), 4096)
	v, err := fn(d)
	if err != nil {
		return v, badRequest("invalid request body", err)
	}
	return v, nil
}
