package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bahodirov07uz/shop/internal/domain/order"
)

var orderRowColumns = []string{
	"id", "order_number", "status", "subtotal", "discount_amount", "discount_percent",
	"delivery_type", "delivery_cost", "document_type", "document_cost", "total",
	"shipping_address", "notes", "created_at", "last_status_update",
}

const saveStatusSQL = `UPDATE orders SET status = $2, last_status_update = $3 ` +
	`WHERE id = $1 AND status NOT IN ('completed', 'cancelled')`

func testOrder() *order.Order {
	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	return &order.Order{
		ID:           "0b9f6c2e-5a1d-4b55-9a7c-0c3f7b1e2d40",
		Number:       "ORD-20250301090000-AB12",
		Status:       order.StatusNew,
		Subtotal:     decimal.RequireFromString("5999.98"),
		DeliveryType: order.DeliveryAir,
		DocumentType: order.DocumentGTDRB,
		Total:        decimal.RequireFromString("6064.98"),
		CreatedAt:    created,
		Items: []order.Item{
			{ProductID: 1, Name: "Antminer S21", Quantity: 2, OriginalPrice: decimal.RequireFromString("2999.99"), Price: decimal.RequireFromString("2999.99")},
		},
	}
}

func TestOrderRepository_ListActive(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	updated := created.AddDate(0, 0, 2)
	mock.ExpectQuery(regexp.QuoteMeta(listActiveOrdersSQL)).
		WillReturnRows(pgxmock.NewRows(orderRowColumns).
			AddRow("a", "ORD-1", "processing", decimal.NewFromInt(100), decimal.Zero, decimal.Zero,
				"sea", decimal.NewFromInt(20), "dt_rf", decimal.NewFromInt(25), decimal.NewFromInt(145),
				"Tashkent", "", created, &updated).
			AddRow("b", "ORD-2", "new", decimal.NewFromInt(50), decimal.Zero, decimal.Zero,
				"air", decimal.NewFromInt(50), "gtd_rb", decimal.NewFromInt(15), decimal.NewFromInt(115),
				"", "", created, (*time.Time)(nil)))

	got, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, order.StatusProcessing, got[0].Status)
	assert.Equal(t, order.DeliverySea, got[0].DeliveryType)
	assert.Equal(t, order.DocumentDTRF, got[0].DocumentType)
	require.NotNil(t, got[0].LastStatusUpdate)
	assert.True(t, updated.Equal(*got[0].LastStatusUpdate))

	assert.Equal(t, order.StatusNew, got[1].Status)
	assert.Nil(t, got[1].LastStatusUpdate)
}

func TestOrderRepository_Create(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mock := newMock(t)
		repo := NewOrderRepository(mock)
		o := testOrder()
		o.StatusNote = "created"

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO orders").
			WithArgs(o.ID, o.Number, "new", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				"air", pgxmock.AnyArg(), "gtd_rb", pgxmock.AnyArg(), pgxmock.AnyArg(),
				"", "", o.CreatedAt, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec("INSERT INTO order_items").
			WithArgs(o.ID, 1, int64(1), "Antminer S21", 2, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec("INSERT INTO order_status_history").
			WithArgs(o.ID, "new", "created", o.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		require.NoError(t, repo.Create(context.Background(), o))
	})

	t.Run("ItemFailureRollsBack", func(t *testing.T) {
		mock := newMock(t)
		repo := NewOrderRepository(mock)
		o := testOrder()

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO orders").WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec("INSERT INTO order_items").WillReturnError(errors.New("fk violation"))
		mock.ExpectRollback()

		err := repo.Create(context.Background(), o)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "insert item 1")
	})
}

func TestOrderRepository_Save(t *testing.T) {
	t.Run("StatusWithHistory", func(t *testing.T) {
		mock := newMock(t)
		repo := NewOrderRepository(mock)
		o := testOrder()
		now := o.CreatedAt.AddDate(0, 0, 3)
		o.SetStatus(order.StatusShipped, now, "3 days since creation")

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(saveStatusSQL)).
			WithArgs(o.ID, "shipped", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec("INSERT INTO order_status_history").
			WithArgs(o.ID, "shipped", "3 days since creation", now).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		require.NoError(t, repo.Save(context.Background(), o, order.FieldStatus, order.FieldLastStatusUpdate))
	})

	t.Run("TimestampOnly", func(t *testing.T) {
		mock := newMock(t)
		repo := NewOrderRepository(mock)
		o := testOrder()

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE orders SET last_status_update = $2 WHERE id = $1`)).
			WithArgs(o.ID, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		require.NoError(t, repo.Save(context.Background(), o, order.FieldLastStatusUpdate))
	})

	t.Run("TerminalInStorage", func(t *testing.T) {
		mock := newMock(t)
		repo := NewOrderRepository(mock)
		o := testOrder()
		o.SetStatus(order.StatusProcessing, o.CreatedAt.Add(time.Hour), "")

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(saveStatusSQL)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectRollback()

		err := repo.Save(context.Background(), o, order.FieldStatus, order.FieldLastStatusUpdate)
		require.ErrorIs(t, err, order.ErrStatusConflict)
	})

	t.Run("UnknownField", func(t *testing.T) {
		mock := newMock(t)
		repo := NewOrderRepository(mock)

		err := repo.Save(context.Background(), testOrder(), order.Field("total"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown order field "total"`)
	})

	t.Run("NoFields", func(t *testing.T) {
		mock := newMock(t)
		repo := NewOrderRepository(mock)

		require.NoError(t, repo.Save(context.Background(), testOrder()))
	})
}

func TestOrderRepository_GetByID(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		mock := newMock(t)
		repo := NewOrderRepository(mock)
		o := testOrder()

		mock.ExpectQuery(regexp.QuoteMeta(getOrderByIDSQL)).
			WithArgs(o.ID).
			WillReturnRows(pgxmock.NewRows(orderRowColumns).
				AddRow(o.ID, o.Number, "new", o.Subtotal, decimal.Zero, decimal.Zero,
					"air", decimal.NewFromInt(50), "gtd_rb", decimal.NewFromInt(15), o.Total,
					"Samarkand", "call first", o.CreatedAt, (*time.Time)(nil)))
		mock.ExpectQuery(regexp.QuoteMeta(listOrderItemsSQL)).
			WithArgs(o.ID).
			WillReturnRows(pgxmock.NewRows([]string{"product_id", "name", "quantity", "original_price", "price", "discount_amount"}).
				AddRow(int64(1), "Antminer S21", int32(2), decimal.RequireFromString("2999.99"),
					decimal.RequireFromString("2999.99"), decimal.Zero))
		mock.ExpectQuery(regexp.QuoteMeta(listStatusChangesSQL)).
			WithArgs(o.ID).
			WillReturnRows(pgxmock.NewRows([]string{"order_id", "status", "notes", "created_at"}).
				AddRow(o.ID, "new", "", o.CreatedAt))

		got, err := repo.GetByID(context.Background(), o.ID)
		require.NoError(t, err)
		assert.Equal(t, "Samarkand", got.ShippingAddress)
		require.Len(t, got.Items, 1)
		assert.Equal(t, 2, got.Items[0].Quantity)
		require.Len(t, got.History, 1)
		assert.Equal(t, order.StatusNew, got.History[0].Status)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock := newMock(t)
		repo := NewOrderRepository(mock)

		const missing = "6f1c1f0e-8d0a-4e7e-9b8e-2f4b5c6d7e80"
		mock.ExpectQuery(regexp.QuoteMeta(getOrderByIDSQL)).
			WithArgs(missing).
			WillReturnRows(pgxmock.NewRows(orderRowColumns))

		_, err := repo.GetByID(context.Background(), missing)
		require.ErrorIs(t, err, order.ErrNotFound)
	})

	t.Run("MalformedID", func(t *testing.T) {
		mock := newMock(t)
		repo := NewOrderRepository(mock)

		// No query is expected: the mock fails the test if one is issued.
		for _, id := range []string{"abc", "", "1; DROP TABLE orders", "0b9f6c2e-5a1d-4b55-9a7c"} {
			_, err := repo.GetByID(context.Background(), id)
			require.ErrorIs(t, err, order.ErrNotFound, id)
		}
	})
}
