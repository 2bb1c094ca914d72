package order

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bahodirov07uz/shop/internal/domain/discount"
	"github.com/bahodirov07uz/shop/internal/domain/product"
)

// Sentinel errors for order validation.
var (
	ErrEmptyItems = errors.New("items required")
)

// ProductNotFoundError indicates a requested product does not exist or is
// not for sale.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

// MaxQuantity is the largest line quantity the order_items INTEGER column holds.
const MaxQuantity = math.MaxInt32

// InvalidQuantityError indicates a line item quantity outside [1, MaxQuantity].
type InvalidQuantityError struct {
	ProductID int64
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be between 1 and %d for product %d", MaxQuantity, e.ProductID)
}

// DeliverySettings holds shipping and customs document prices.
type DeliverySettings struct {
	AirRate   decimal.Decimal
	SeaRate   decimal.Decimal
	GTDRBCost decimal.Decimal
	DTRFCost  decimal.Decimal
}

// DeliveryCost returns the rate for t after normalization.
func (s DeliverySettings) DeliveryCost(t DeliveryType) decimal.Decimal {
	if t.Normalize() == DeliverySea {
		return s.SeaRate
	}
	return s.AirRate
}

// DocumentCost returns the cost for t after normalization.
func (s DeliverySettings) DocumentCost(t DocumentType) decimal.Decimal {
	if t.Normalize() == DocumentDTRF {
		return s.DTRFCost
	}
	return s.GTDRBCost
}

// LineRequest is one requested cart line.
type LineRequest struct {
	ProductID int64
	Quantity  int
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	Items           []LineRequest
	DeliveryType    DeliveryType
	DocumentType    DocumentType
	ShippingAddress string
	Notes           string
}

// Quote is a fully priced cart that has not been persisted.
type Quote struct {
	Items        []Item
	Subtotal     decimal.Decimal
	Cart         discount.CartDiscount
	DeliveryType DeliveryType
	DeliveryCost decimal.Decimal
	DocumentType DocumentType
	DocumentCost decimal.Decimal
	Total        decimal.Decimal
}

// PricingSource loads a consistent view of both discount pools.
type PricingSource interface {
	Snapshot(ctx context.Context) (*discount.Snapshot, error)
}

// Service encapsulates checkout and manual status changes.
type Service struct {
	products product.Repository
	pricing  PricingSource
	orders   Repository
	rules    RuleRepository
	delivery DeliverySettings
	now      func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	products product.Repository,
	pricing PricingSource,
	orders Repository,
	rules RuleRepository,
	delivery DeliverySettings,
) *Service {
	return &Service{
		products: products,
		pricing:  pricing,
		orders:   orders,
		rules:    rules,
		delivery: delivery,
		now:      time.Now,
	}
}

// WithClock replaces the service clock. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Quote prices the requested lines without persisting anything.
func (s *Service) Quote(ctx context.Context, items []LineRequest, dt DeliveryType, doc DocumentType) (*Quote, error) {
	if len(items) == 0 {
		return nil, ErrEmptyItems
	}

	ids := make([]int64, len(items))
	for i, item := range items {
		if item.Quantity <= 0 || item.Quantity > MaxQuantity {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		ids[i] = item.ProductID
	}

	// Batch fetch all products in a single query.
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	productMap := make(map[int64]*product.Product, len(fetched))
	for i := range fetched {
		productMap[fetched[i].ID] = &fetched[i]
	}

	snap, err := s.pricing.Snapshot(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load discounts")
	}

	lines := make([]Item, 0, len(items))
	subtotal := decimal.Zero
	for _, item := range items {
		p, ok := productMap[item.ProductID]
		if !ok || !p.IsActive {
			return nil, &ProductNotFoundError{ProductID: item.ProductID}
		}
		// Line prices are resolved with a zero order amount, the same
		// price the catalog shows.
		info := snap.Product(p, decimal.Zero)
		line := Item{
			ProductID:      p.ID,
			Name:           p.Name,
			Quantity:       item.Quantity,
			OriginalPrice:  p.Price,
			Price:          info.DiscountedPrice,
			DiscountAmount: info.TotalDiscount,
		}
		lines = append(lines, line)
		subtotal = subtotal.Add(line.LineTotal())
	}
	subtotal = subtotal.Round(2)

	cart := snap.Cart(subtotal)
	dt, doc = dt.Normalize(), doc.Normalize()
	deliveryCost := s.delivery.DeliveryCost(dt)
	documentCost := s.delivery.DocumentCost(doc)

	return &Quote{
		Items:        lines,
		Subtotal:     subtotal,
		Cart:         cart,
		DeliveryType: dt,
		DeliveryCost: deliveryCost,
		DocumentType: doc,
		DocumentCost: documentCost,
		Total:        cart.FinalTotal.Add(deliveryCost).Add(documentCost).Round(2),
	}, nil
}

// PlaceOrder prices the cart, applies immediate status rules, and persists
// the order.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	q, err := s.Quote(ctx, req.Items, req.DeliveryType, req.DocumentType)
	if err != nil {
		return nil, err
	}

	rules, err := s.rules.ListActive(ctx, true)
	if err != nil {
		return nil, errors.Wrap(err, "list immediate rules")
	}
	SortImmediate(rules)

	now := s.now()
	o := &Order{
		ID:              uuid.New().String(),
		Number:          NewNumber(now),
		Status:          StatusNew,
		Items:           q.Items,
		Subtotal:        q.Subtotal,
		DiscountAmount:  q.Cart.Discount,
		DiscountPercent: q.Cart.DiscountPercent,
		DeliveryType:    q.DeliveryType,
		DeliveryCost:    q.DeliveryCost,
		DocumentType:    q.DocumentType,
		DocumentCost:    q.DocumentCost,
		Total:           q.Total,
		ShippingAddress: req.ShippingAddress,
		Notes:           req.Notes,
		CreatedAt:       now,
	}
	ApplyImmediate(o, rules, now)

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	return o, nil
}

// Get returns an order with its items and status history.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}
	return o, nil
}

// ChangeStatus moves an order to status on an administrator's request.
// Terminal orders cannot be changed.
func (s *Service) ChangeStatus(ctx context.Context, id string, status Status, note string) (*Order, error) {
	if !status.Valid() {
		return nil, errors.Wrapf(ErrInvalidStatus, "status %q", status)
	}
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}
	if o.Status == status {
		return o, nil
	}
	if o.Status.Terminal() {
		return nil, ErrStatusConflict
	}

	o.SetStatus(status, s.now(), note)
	if err := s.orders.Save(ctx, o, FieldStatus, FieldLastStatusUpdate); err != nil {
		return nil, errors.Wrap(err, "save order")
	}
	return o, nil
}

// NewNumber formats a human-readable order number such as
// ORD-20250722184501-3F9A.
func NewNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:4])
	return "ORD-" + now.Format("20060102150405") + "-" + suffix
}
