package catalog

import (
	"sort"
	"strings"

	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

type SortOrder string

const (
	SortFeatured  SortOrder = "featured"
	SortPriceLow  SortOrder = "price-low"
	SortPriceHigh SortOrder = "price-high"
	SortName      SortOrder = "name"
	SortNewest    SortOrder = "newest"
)

// CategoryAll matches every product.
const CategoryAll = "all"

// Query filters and orders a product list. Zero values disable a filter.
type Query struct {
	Search           string
	Category         string
	MinPrice         *decimal.Decimal
	MaxPrice         *decimal.Decimal
	CustomizableOnly bool
	InStockOnly      bool
	Sort             SortOrder
}

func (q Query) matches(p domain.Product) bool {
	if term := strings.ToLower(strings.TrimSpace(q.Search)); term != "" {
		if !strings.Contains(strings.ToLower(p.Name), term) &&
			!strings.Contains(strings.ToLower(p.Description), term) &&
			!strings.Contains(strings.ToLower(p.Category), term) {
			return false
		}
	}
	if q.Category != "" && q.Category != CategoryAll && !strings.EqualFold(p.Category, q.Category) {
		return false
	}
	if q.MinPrice != nil && p.Price.LessThan(*q.MinPrice) {
		return false
	}
	if q.MaxPrice != nil && p.Price.GreaterThan(*q.MaxPrice) {
		return false
	}
	if q.CustomizableOnly && !p.IsCustomizable {
		return false
	}
	if q.InStockOnly && !p.InStock() {
		return false
	}
	return true
}

// Apply returns the matching products in the requested order. The input
// slice is not modified. Featured keeps the input order.
func Apply(products []domain.Product, q Query) []domain.Product {
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if q.matches(p) {
			out = append(out, p)
		}
	}

	switch q.Sort {
	case SortPriceLow:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	case SortPriceHigh:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price.GreaterThan(out[j].Price) })
	case SortName:
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
		})
	case SortNewest:
		sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	}
	return out
}

// ParseSort maps a sort name to a SortOrder, defaulting to featured.
func ParseSort(s string) SortOrder {
	switch SortOrder(s) {
	case SortPriceLow, SortPriceHigh, SortName, SortNewest:
		return SortOrder(s)
	default:
		return SortFeatured
	}
}

type Category struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

// Categories returns "all" followed by one bucket per category tag in
// alphabetical order.
func Categories(products []domain.Product) []Category {
	counts := map[string]int{}
	for _, p := range products {
		counts[strings.ToLower(p.Category)]++
	}

	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Category, 0, len(ids)+1)
	out = append(out, Category{ID: CategoryAll, Count: len(products)})
	for _, id := range ids {
		out = append(out, Category{ID: id, Count: counts[id]})
	}
	return out
}

// MaxCompare is the most products shown side by side.
const MaxCompare = 3

// Compare picks the products with the given ids, in request order, ignoring
// duplicates.
func Compare(products []domain.Product, ids []int64) ([]domain.Product, error) {
	if len(ids) > MaxCompare {
		return nil, ErrTooManyToCompare
	}
	byID := make(map[int64]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	seen := map[int64]bool{}
	out := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		p, ok := byID[id]
		if !ok {
			return nil, ErrProductNotFound
		}
		out = append(out, p)
	}
	return out, nil
}
