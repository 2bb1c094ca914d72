package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bahodirov07uz/shop/internal/domain/discount"
)

func writeGz(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)

	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

func TestDecodeDiscount(t *testing.T) {
	t.Run("Full", func(t *testing.T) {
		v, err := decodeDiscount(jx.DecodeStr(`{
			"name": "Spring sale",
			"type": "percentage",
			"value": 10,
			"apply_to": "category",
			"additional": false,
			"min_order_amount": "100.50",
			"max_order_amount": "5000",
			"start": "2026-03-01T00:00:00Z",
			"end": "2026-03-31T23:59:59Z",
			"category_ids": [4, 7],
			"comment": {"ignored": true}
		}`))
		require.NoError(t, err)

		assert.Equal(t, "Spring sale", v.Name)
		assert.Equal(t, discount.TypePercentage, v.Type)
		assert.True(t, decimal.NewFromInt(10).Equal(v.Value))
		assert.Equal(t, discount.ScopeCategory, v.ApplyTo)
		assert.True(t, decimal.RequireFromString("100.5").Equal(v.MinOrderAmount))
		require.NotNil(t, v.MaxOrderAmount)
		assert.True(t, decimal.NewFromInt(5000).Equal(*v.MaxOrderAmount))
		assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), v.StartDate)
		assert.Equal(t, []int64{4, 7}, v.CategoryIDs)
		assert.True(t, v.IsActive)
	})

	t.Run("Defaults", func(t *testing.T) {
		v, err := decodeDiscount(jx.DecodeStr(
			`{"name":"Cart 1000","type":"fixed","value":"1000","additional":true,"max_order_amount":null,` +
				`"start":"2026-01-01T00:00:00Z","end":"2026-12-31T00:00:00Z"}`))
		require.NoError(t, err)

		assert.Equal(t, discount.ScopeAll, v.ApplyTo)
		assert.True(t, v.IsAdditional)
		assert.Nil(t, v.MaxOrderAmount)
		assert.True(t, v.MinOrderAmount.IsZero())
	})

	for _, tt := range []struct {
		name  string
		input string
		err   string
	}{
		{"NoName", `{"type":"fixed","value":1,"start":"2026-01-01T00:00:00Z","end":"2026-01-02T00:00:00Z"}`, "name is required"},
		{"BadType", `{"name":"a","type":"bogo","value":1,"start":"2026-01-01T00:00:00Z","end":"2026-01-02T00:00:00Z"}`, "unknown type"},
		{"BadScope", `{"name":"a","type":"fixed","apply_to":"brand","value":1,"start":"2026-01-01T00:00:00Z","end":"2026-01-02T00:00:00Z"}`, "unknown scope"},
		{"Negative", `{"name":"a","type":"fixed","value":"-1","start":"2026-01-01T00:00:00Z","end":"2026-01-02T00:00:00Z"}`, "negative"},
		{"NoDates", `{"name":"a","type":"fixed","value":1}`, "start and end are required"},
		{"Reversed", `{"name":"a","type":"fixed","value":1,"start":"2026-02-01T00:00:00Z","end":"2026-01-01T00:00:00Z"}`, "end is before start"},
		{"BadDate", `{"name":"a","type":"fixed","value":1,"start":"yesterday","end":"2026-01-01T00:00:00Z"}`, "start"},
		{"BadValue", `{"name":"a","type":"fixed","value":true}`, "value"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeDiscount(jx.DecodeStr(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.err)
		})
	}
}

const window = `"start":"2026-01-01T00:00:00Z","end":"2026-12-31T00:00:00Z"`

func TestParseFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeGz(t, dir, "a.jsonl.gz",
		`{"name":"Shared","type":"fixed","value":"5",`+window+`}`,
		``,
		`{"name":"Only A","type":"percentage","value":"3",`+window+`}`,
	)
	b := writeGz(t, dir, "b.jsonl.gz",
		`{"name":"Shared","type":"fixed","value":"9",`+window+`}`,
	)

	results, err := parseFiles(context.Background(), []string{a, b})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Len(t, results[0].discounts, 2)
	assert.Len(t, results[1].discounts, 1)

	merged := mergeResults(results)
	require.Len(t, merged, 2)

	byName := map[string]discount.Discount{}
	for _, v := range merged {
		byName[v.Name] = v
	}
	assert.True(t, decimal.NewFromInt(9).Equal(byName["Shared"].Value), "later file wins")
	assert.Contains(t, byName, "Only A")
}

func TestParseFiles_BadLine(t *testing.T) {
	dir := t.TempDir()
	path := writeGz(t, dir, "bad.jsonl.gz",
		`{"name":"Fine","type":"fixed","value":"5",`+window+`}`,
		`{"name":"Broken","type":"fixed"`,
	)

	_, err := parseFiles(context.Background(), []string{path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.jsonl.gz:2")
}

func TestRun_DryRun(t *testing.T) {
	dir := t.TempDir()
	writeGz(t, dir, "one.jsonl.gz", `{"name":"X","type":"fixed","value":"5",`+window+`}`)

	require.NoError(t, run(context.Background(), dir, "", true))
	require.NoError(t, run(context.Background(), t.TempDir(), "", false), "no files is not an error")
}
