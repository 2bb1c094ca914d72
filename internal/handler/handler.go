// Package handler exposes the storefront HTTP API.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"

	"github.com/bahodirov07uz/shop/internal/domain/auth"
	"github.com/bahodirov07uz/shop/internal/domain/discount"
	"github.com/bahodirov07uz/shop/internal/domain/order"
	"github.com/bahodirov07uz/shop/internal/domain/product"
)

// OrderService is the checkout and order lifecycle surface used by the API.
type OrderService interface {
	Quote(ctx context.Context, items []order.LineRequest, dt order.DeliveryType, doc order.DocumentType) (*order.Quote, error)
	PlaceOrder(ctx context.Context, req order.PlaceOrderRequest) (*order.Order, error)
	Get(ctx context.Context, id string) (*order.Order, error)
	ChangeStatus(ctx context.Context, id string, status order.Status, note string) (*order.Order, error)
}

// Pricing loads both discount pools once per request.
type Pricing interface {
	Snapshot(ctx context.Context) (*discount.Snapshot, error)
}

// Authenticator validates staff API keys.
type Authenticator interface {
	Authenticate(ctx context.Context, key, scope string) (*auth.APIKey, error)
}

// Handler serves the /api routes.
type Handler struct {
	products product.Repository
	pricing  Pricing
	orders   OrderService
	auth     Authenticator
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	products product.Repository,
	pricing Pricing,
	orders OrderService,
	authenticator Authenticator,
) *Handler {
	return &Handler{
		products: products,
		pricing:  pricing,
		orders:   orders,
		auth:     authenticator,
	}
}

// Router returns the API routes mounted under /api.
func (h *Handler) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(nameSpan)

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.GetProduct)
		r.Post("/cart/quote", h.QuoteCart)
		r.Post("/orders", h.PlaceOrder)
		r.Get("/orders/{id}", h.GetOrder)

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.RequireScope(auth.ScopeOrdersWrite))
			r.Post("/orders/{id}/status", h.ChangeOrderStatus)
		})
	})
	return r
}

// nameSpan renames the request span after its chi route pattern so traces
// group by route instead of by raw path.
func nameSpan(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if pattern := rc.RoutePattern(); pattern != "" {
				trace.SpanFromContext(r.Context()).SetName(r.Method + " " + pattern)
			}
		}
	})
}
