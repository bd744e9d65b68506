package catalog

import (
	"testing"

	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(products []domain.Product) []int64 {
	out := make([]int64, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestApply_NoFilters_KeepsOrder(t *testing.T) {
	got := Apply(DemoProducts(), Query{})
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7, 8}, ids(got))
}

func TestApply_Search(t *testing.T) {
	got := Apply(DemoProducts(), Query{Search: "CUSTOM"})
	assert.Contains(t, ids(got), int64(1))
	assert.Contains(t, ids(got), int64(2))

	got = Apply(DemoProducts(), Query{Search: "engraving"})
	assert.Equal(t, []int64{5}, ids(got))

	got = Apply(DemoProducts(), Query{Search: "art"})
	assert.Contains(t, ids(got), int64(7))
}

func TestApply_CategoryAndPrice(t *testing.T) {
	got := Apply(DemoProducts(), Query{Category: "clothing"})
	assert.Equal(t, []int64{1, 3, 4}, ids(got))

	got = Apply(DemoProducts(), Query{Category: "all", MinPrice: dec("150"), MaxPrice: dec("299.99")})
	assert.Equal(t, []int64{1, 3, 5}, ids(got))
}

func TestApply_StockAndCustomizable(t *testing.T) {
	products := DemoProducts()
	products[0].Stock = 0
	products[1].IsCustomizable = false

	got := Apply(products, Query{InStockOnly: true, CustomizableOnly: true})
	assert.Equal(t, []int64{3, 4, 5, 6, 7, 8}, ids(got))
}

func TestApply_Sorts(t *testing.T) {
	products := DemoProducts()

	low := Apply(products, Query{Sort: SortPriceLow})
	assert.Equal(t, []int64{7, 8, 6, 2, 3, 1, 5, 4}, ids(low))

	high := Apply(products, Query{Sort: SortPriceHigh})
	assert.Equal(t, []int64{4, 1, 5, 3, 2, 6, 7, 8}, ids(high))

	byName := Apply(products, Query{Sort: SortName})
	assert.Equal(t, "Artisan Cutting Board", byName[0].Name)
	assert.Equal(t, "Premium Custom T-Shirt", byName[len(byName)-1].Name)

	newest := Apply(products, Query{Sort: SortNewest})
	assert.Equal(t, []int64{8, 7, 6, 5, 4, 3, 2, 1}, ids(newest))

	assert.Equal(t, int64(1), products[0].ID, "input must not be reordered")
}

func TestParseSort(t *testing.T) {
	assert.Equal(t, SortPriceLow, ParseSort("price-low"))
	assert.Equal(t, SortFeatured, ParseSort(""))
	assert.Equal(t, SortFeatured, ParseSort("random"))
}

func TestCategories(t *testing.T) {
	got := Categories(DemoProducts())
	assert.Equal(t, []Category{
		{ID: "all", Count: 8},
		{ID: "accessories", Count: 3},
		{ID: "art", Count: 1},
		{ID: "clothing", Count: 3},
		{ID: "home", Count: 1},
	}, got)
}

func TestCompare(t *testing.T) {
	got, err := Compare(DemoProducts(), []int64{4, 1, 4})
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 1}, ids(got))

	_, err = Compare(DemoProducts(), []int64{1, 2, 3, 4})
	assert.ErrorIs(t, err, ErrTooManyToCompare)

	_, err = Compare(DemoProducts(), []int64{99})
	assert.ErrorIs(t, err, ErrProductNotFound)
}
