package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/bahodirov07uz/shop/internal/domain/product"
)

// ListProducts serves GET /api/products. Optional query parameters
// category and manufacturer filter by ID.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	f := product.Filter{ActiveOnly: true}
	var err error
	if f.CategoryID, err = queryID(r, "category"); err != nil {
		h.fail(w, r, err)
		return
	}
	if f.ManufacturerID, err = queryID(r, "manufacturer"); err != nil {
		h.fail(w, r, err)
		return
	}

	products, err := h.products.List(ctx, f)
	if err != nil {
		h.fail(w, r, errors.Wrap(err, "list products"))
		return
	}
	snap, err := h.pricing.Snapshot(ctx)
	if err != nil {
		h.fail(w, r, errors.Wrap(err, "load discounts"))
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range products {
				p := &products[i]
				encodeProduct(e, p, snap.Product(p, decimal.Zero))
			}
		})
	})
}

// GetProduct serves GET /api/products/{id}. The optional order_amount query
// parameter is checked against discount order bounds.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.fail(w, r, badRequest("invalid product id", nil))
		return
	}
	orderAmount := decimal.Zero
	if v := r.URL.Query().Get("order_amount"); v != "" {
		if orderAmount, err = decimal.NewFromString(v); err != nil {
			h.fail(w, r, badRequest("invalid order_amount", err))
			return
		}
	}

	p, err := h.products.GetByID(ctx, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !p.IsActive {
		h.fail(w, r, product.ErrNotFound)
		return
	}
	snap, err := h.pricing.Snapshot(ctx)
	if err != nil {
		h.fail(w, r, errors.Wrap(err, "load discounts"))
		return
	}

	info := snap.Product(p, orderAmount)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeProduct(e, p, info) })
}

func queryID(r *http.Request, name string) (int64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid "+name, nil)
	}
	return id, nil
}
