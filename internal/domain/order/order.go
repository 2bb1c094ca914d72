package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is an order lifecycle state.
type Status string

const (
	StatusNew         Status = "new"
	StatusProcessing  Status = "processing"
	StatusShipped     Status = "shipped"
	StatusCustoms     Status = "customs"
	StatusSorting     Status = "sorting"
	StatusDelivering  Status = "delivering"
	StatusPickupReady Status = "pickup_ready"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
)

// Statuses lists every status in progression order.
var Statuses = []Status{
	StatusNew,
	StatusProcessing,
	StatusShipped,
	StatusCustoms,
	StatusSorting,
	StatusDelivering,
	StatusPickupReady,
	StatusCompleted,
	StatusCancelled,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Terminal reports whether the rule engine must leave an order in s alone.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// DeliveryType selects the shipping method and its rate.
type DeliveryType string

const (
	DeliveryAir DeliveryType = "air"
	DeliverySea DeliveryType = "sea"
)

// Normalize returns t, or DeliveryAir when t is unknown.
func (t DeliveryType) Normalize() DeliveryType {
	if t == DeliverySea {
		return DeliverySea
	}
	return DeliveryAir
}

// DocumentType selects the customs document and its cost.
type DocumentType string

const (
	DocumentGTDRB DocumentType = "gtd_rb"
	DocumentDTRF  DocumentType = "dt_rf"
)

// Normalize returns t, or DocumentGTDRB when t is unknown.
func (t DocumentType) Normalize() DocumentType {
	if t == DocumentDTRF {
		return DocumentDTRF
	}
	return DocumentGTDRB
}

// Sentinel errors for order persistence and lifecycle.
var (
	ErrNotFound = errors.New("order not found")
	// ErrStatusConflict is returned by Repository.Save when the stored order
	// reached a terminal status after it was loaded.
	ErrStatusConflict = errors.New("order status changed concurrently")
	// ErrSweepInProgress is returned when another status sweep holds the run lock.
	ErrSweepInProgress = errors.New("status sweep already in progress")
	ErrInvalidStatus   = errors.New("invalid order status")
)

// Order is a placed customer order with its pricing snapshot.
type Order struct {
	ID              string
	Number          string
	Status          Status
	Items           []Item
	Subtotal        decimal.Decimal
	DiscountAmount  decimal.Decimal
	DiscountPercent decimal.Decimal
	DeliveryType    DeliveryType
	DeliveryCost    decimal.Decimal
	DocumentType    DocumentType
	DocumentCost    decimal.Decimal
	Total           decimal.Decimal
	ShippingAddress string
	Notes           string
	CreatedAt       time.Time
	// LastStatusUpdate is nil until the first transition after creation.
	LastStatusUpdate *time.Time

	// StatusNote is recorded with the next persisted status change. Not stored on the order.
	StatusNote string
	// History is populated by Repository.GetByID.
	History []StatusChange
}

// SetStatus moves the order to s at now.
func (o *Order) SetStatus(s Status, now time.Time, note string) {
	o.Status = s
	o.LastStatusUpdate = &now
	o.StatusNote = note
}

// Item is a single order line priced at checkout.
type Item struct {
	ProductID      int64
	Name           string
	Quantity       int
	OriginalPrice  decimal.Decimal
	Price          decimal.Decimal
	DiscountAmount decimal.Decimal
}

// LineTotal returns Price * Quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// StatusChange is one entry of an order's status history.
type StatusChange struct {
	OrderID   string
	Status    Status
	Notes     string
	CreatedAt time.Time
}

// Field names a persisted order column that Save may update.
type Field string

const (
	FieldStatus           Field = "status"
	FieldLastStatusUpdate Field = "last_status_update"
)

// Repository defines persistence operations for orders.
type Repository interface {
	// ListActive returns non-terminal orders, newest first.
	ListActive(ctx context.Context) ([]Order, error)
	// Save writes the given fields of o. Saving FieldStatus appends a StatusChange.
	Save(ctx context.Context, o *Order, fields ...Field) error
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
}
