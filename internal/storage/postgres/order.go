package postgres

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bahodirov07uz/shop/internal/domain/order"
)

const (
	orderColumns = `id, order_number, status, subtotal, discount_amount, discount_percent,
		delivery_type, delivery_cost, document_type, document_cost, total,
		shipping_address, notes, created_at, last_status_update`

	listActiveOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE status NOT IN ('completed', 'cancelled')
		ORDER BY created_at DESC`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	insertOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	insertOrderItemSQL = `INSERT INTO order_items
		(order_id, line_no, product_id, name, quantity, original_price, price, discount_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	listOrderItemsSQL = `SELECT product_id, name, quantity, original_price, price, discount_amount
		FROM order_items WHERE order_id = $1 ORDER BY line_no`

	insertStatusChangeSQL = `INSERT INTO order_status_history (order_id, status, notes, created_at)
		VALUES ($1, $2, $3, $4)`

	listStatusChangesSQL = `SELECT order_id, status, notes, created_at
		FROM order_status_history WHERE order_id = $1 ORDER BY created_at, id`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	db DB
}

// NewOrderRepository returns an OrderRepository that uses the given connection.
func NewOrderRepository(db DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// ListActive returns non-terminal orders newest first. Items and history
// are not loaded.
func (r *OrderRepository) ListActive(ctx context.Context) ([]order.Order, error) {
	rows, err := r.db.Query(ctx, listActiveOrdersSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list active orders")
	}
	out, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, errors.Wrap(err, "scan orders")
	}
	return out, nil
}

// Create persists a new order with its items and the initial history entry.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertOrderSQL,
			o.ID, o.Number, string(o.Status), o.Subtotal, o.DiscountAmount, o.DiscountPercent,
			string(o.DeliveryType), o.DeliveryCost, string(o.DocumentType), o.DocumentCost, o.Total,
			o.ShippingAddress, o.Notes, o.CreatedAt, o.LastStatusUpdate,
		); err != nil {
			return errors.Wrapf(err, "insert order %q", o.Number)
		}

		for i, it := range o.Items {
			if _, err := tx.Exec(ctx, insertOrderItemSQL,
				o.ID, i+1, it.ProductID, it.Name, it.Quantity, it.OriginalPrice, it.Price, it.DiscountAmount,
			); err != nil {
				return errors.Wrapf(err, "insert item %d of order %q", i+1, o.Number)
			}
		}

		at := o.CreatedAt
		if o.LastStatusUpdate != nil {
			at = *o.LastStatusUpdate
		}
		if _, err := tx.Exec(ctx, insertStatusChangeSQL, o.ID, string(o.Status), o.StatusNote, at); err != nil {
			return errors.Wrapf(err, "insert history of order %q", o.Number)
		}
		return nil
	})
}

// Save updates the given columns of an order that is not yet terminal in
// storage. It returns order.ErrStatusConflict when the stored row is
// terminal or gone. Saving order.FieldStatus also appends a history entry.
func (r *OrderRepository) Save(ctx context.Context, o *order.Order, fields ...order.Field) error {
	if len(fields) == 0 {
		return nil
	}

	args := []any{o.ID}
	sets := make([]string, 0, len(fields))
	withHistory := false
	for _, f := range fields {
		switch f {
		case order.FieldStatus:
			args = append(args, string(o.Status))
			withHistory = true
		case order.FieldLastStatusUpdate:
			args = append(args, o.LastStatusUpdate)
		default:
			return errors.Errorf("unknown order field %q", f)
		}
		sets = append(sets, string(f)+" = $"+strconv.Itoa(len(args)))
	}
	query := `UPDATE orders SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1 AND status NOT IN ('completed', 'cancelled')`

	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return errors.Wrapf(err, "update order %q", o.Number)
		}
		if tag.RowsAffected() == 0 {
			return order.ErrStatusConflict
		}
		if !withHistory {
			return nil
		}

		at := time.Now()
		if o.LastStatusUpdate != nil {
			at = *o.LastStatusUpdate
		}
		if _, err := tx.Exec(ctx, insertStatusChangeSQL, o.ID, string(o.Status), o.StatusNote, at); err != nil {
			return errors.Wrapf(err, "insert history of order %q", o.Number)
		}
		return nil
	})
}

// GetByID returns an order with its items and status history. An id that is
// not a UUID cannot match the uuid column and reports order.ErrNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	if uuid.Validate(id) != nil {
		return nil, order.ErrNotFound
	}
	rows, err := r.db.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", id)
	}

	rows, err = r.db.Query(ctx, listOrderItemsSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "list items of order %q", id)
	}
	if o.Items, err = pgx.CollectRows(rows, scanOrderItem); err != nil {
		return nil, errors.Wrapf(err, "scan items of order %q", id)
	}

	rows, err = r.db.Query(ctx, listStatusChangesSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "list history of order %q", id)
	}
	if o.History, err = pgx.CollectRows(rows, scanStatusChange); err != nil {
		return nil, errors.Wrapf(err, "scan history of order %q", id)
	}
	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o                          order.Order
		status, delivery, document string
	)
	err := row.Scan(
		&o.ID, &o.Number, &status, &o.Subtotal, &o.DiscountAmount, &o.DiscountPercent,
		&delivery, &o.DeliveryCost, &document, &o.DocumentCost, &o.Total,
		&o.ShippingAddress, &o.Notes, &o.CreatedAt, &o.LastStatusUpdate,
	)
	o.Status = order.Status(status)
	o.DeliveryType = order.DeliveryType(delivery)
	o.DocumentType = order.DocumentType(document)
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var (
		it       order.Item
		quantity int32
	)
	err := row.Scan(&it.ProductID, &it.Name, &quantity, &it.OriginalPrice, &it.Price, &it.DiscountAmount)
	it.Quantity = int(quantity)
	return it, err
}

func scanStatusChange(row pgx.CollectableRow) (order.StatusChange, error) {
	var (
		c      order.StatusChange
		status string
	)
	err := row.Scan(&c.OrderID, &status, &c.Notes, &c.CreatedAt)
	c.Status = order.Status(status)
	return c, err
}
