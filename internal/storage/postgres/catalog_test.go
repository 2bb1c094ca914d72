package postgres

import (
	"context"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bahodirov07uz/shop/internal/domain/product"
)

func TestProductRepository_UpsertManufacturer(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO manufacturers (name, slug)`)).
		WithArgs("Bitmain", "bitmain").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(3)))

	id, err := repo.UpsertManufacturer(context.Background(), "Bitmain", "bitmain")
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
}

func TestProductRepository_UpsertCategory(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO categories (name, slug)`)).
		WithArgs("SHA-256", "sha-256").
		WillReturnError(assert.AnError)

	_, err := repo.UpsertCategory(context.Background(), "SHA-256", "sha-256")
	require.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), `upsert category "sha-256"`)
}

func TestProductRepository_Upsert(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	category := int64(4)
	p := &product.Product{
		Name:           "Antminer S21",
		Slug:           "antminer-s21",
		Price:          decimal.RequireFromString("2999.99"),
		CategoryID:     &category,
		ManufacturerID: 3,
		Stock:          12,
		IsActive:       true,
	}

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO products`)).
		WithArgs("Antminer S21", "antminer-s21", p.Price, pgxmock.AnyArg(), pgxmock.AnyArg(),
			int64(3), int32(12), true).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(17)))

	require.NoError(t, repo.Upsert(context.Background(), p))
	assert.Equal(t, int64(17), p.ID)
}
