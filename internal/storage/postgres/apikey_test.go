package postgres

import (
	"context"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bahodirov07uz/shop/internal/domain/auth"
)

func TestAPIKeyRepository_FindByHash(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		mock := newMock(t)
		repo := NewAPIKeyRepository(mock)

		mock.ExpectQuery(regexp.QuoteMeta(findAPIKeySQL)).
			WithArgs("abc").
			WillReturnRows(pgxmock.NewRows([]string{"id", "key_hash", "name", "scopes"}).
				AddRow("ops", "abc", "Ops", []string{auth.ScopeOrdersWrite}))

		k, err := repo.FindByHash(context.Background(), "abc")
		require.NoError(t, err)
		assert.Equal(t, "ops", k.ID)
		assert.True(t, k.HasScope(auth.ScopeOrdersWrite))
	})

	t.Run("NotFound", func(t *testing.T) {
		mock := newMock(t)
		repo := NewAPIKeyRepository(mock)

		mock.ExpectQuery(regexp.QuoteMeta(findAPIKeySQL)).
			WithArgs("missing").
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.FindByHash(context.Background(), "missing")
		require.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestAPIKeyRepository_Upsert(t *testing.T) {
	mock := newMock(t)
	repo := NewAPIKeyRepository(mock)

	mock.ExpectExec("INSERT INTO api_keys").
		WithArgs("ops", "abc", "Ops", []string{auth.ScopeOrdersWrite}).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Upsert(context.Background(), &auth.APIKey{
		ID: "ops", KeyHash: "abc", Name: "Ops", Scopes: []string{auth.ScopeOrdersWrite},
	}))
}
