package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/bahodirov07uz/shop/internal/domain/order"
)

// QuoteCart serves POST /api/cart/quote: the cart page totals without
// placing an order.
func (h *Handler) QuoteCart(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody(w, r, decodeCart)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	q, err := h.orders.Quote(r.Context(), req.Items, req.DeliveryType, req.DocumentType)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeQuote(e, q) })
}

// PlaceOrder serves POST /api/orders.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody(w, r, decodeCart)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	o, err := h.orders.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		Items:           req.Items,
		DeliveryType:    req.DeliveryType,
		DocumentType:    req.DocumentType,
		ShippingAddress: req.ShippingAddress,
		Notes:           req.Notes,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	zctx.From(r.Context()).Info("Order placed",
		zap.String("order", o.Number),
		zap.String("status", string(o.Status)),
		zap.String("total", o.Total.StringFixed(2)),
	)
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeOrder(e, o) })
}

// GetOrder serves GET /api/orders/{id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

// ChangeOrderStatus serves POST /api/admin/orders/{id}/status.
func (h *Handler) ChangeOrderStatus(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody(w, r, decodeStatus)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	o, err := h.orders.ChangeStatus(r.Context(), chi.URLParam(r, "id"), req.Status, req.Note)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	zctx.From(r.Context()).Info("Order status changed manually",
		zap.String("order", o.Number),
		zap.String("new_status", string(o.Status)),
	)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}
