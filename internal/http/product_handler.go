package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fjod/storefront/internal/catalog"
	"github.com/fjod/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type ProductHandler struct {
	store   catalog.Store
	timeout time.Duration
}

func NewProductHandler(store catalog.Store, timeout time.Duration) *ProductHandler {
	return &ProductHandler{store: store, timeout: timeout}
}

type ProductListResponse struct {
	Products []domain.Product `json:"products"`
	Total    int              `json:"total"`
}

// GET /api/v1/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q, err := parseQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}

	products, err := h.store.List(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}
	matched := catalog.Apply(products, q)
	respondCached(w, r, ProductListResponse{Products: matched, Total: len(matched)})
}

// GET /api/v1/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}
	p, err := h.store.Get(ctx, id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondCached(w, r, p)
}

// GET /api/v1/categories
func (h *ProductHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.store.List(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondCached(w, r, catalog.Categories(products))
}

// GET /api/v1/products/compare?ids=1,2,3
func (h *ProductHandler) Compare(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var ids []int64
	for _, raw := range strings.Split(r.URL.Query().Get("ids"), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_product_id", "ids must be positive integers")
			return
		}
		ids = append(ids, id)
	}

	products, err := h.store.List(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}
	picked, err := catalog.Compare(products, ids)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ProductListResponse{Products: picked, Total: len(picked)})
}

// GET /api/v1/products/customizable
func (h *ProductHandler) ListCustomizable(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.store.List(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}
	matched := catalog.Apply(products, catalog.Query{CustomizableOnly: true})
	respondCached(w, r, ProductListResponse{Products: matched, Total: len(matched)})
}

func parseQuery(r *http.Request) (catalog.Query, error) {
	v := r.URL.Query()
	q := catalog.Query{
		Search:   v.Get("q"),
		Category: v.Get("category"),
		Sort:     catalog.ParseSort(v.Get("sort")),
	}

	for name, dst := range map[string]**decimal.Decimal{"min": &q.MinPrice, "max": &q.MaxPrice} {
		raw := v.Get(name)
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return catalog.Query{}, &queryError{param: name}
		}
		*dst = &d
	}
	for name, dst := range map[string]*bool{"customizable": &q.CustomizableOnly, "in_stock": &q.InStockOnly} {
		raw := v.Get(name)
		if raw == "" {
			continue
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return catalog.Query{}, &queryError{param: name}
		}
		*dst = b
	}
	return q, nil
}

type queryError struct {
	param string
}

func (e *queryError) Error() string {
	return "invalid value for " + e.param
}

// respondCached writes data with an ETag derived from the body and answers
// 304 when the client already holds it.
func respondCached(w http.ResponseWriter, r *http.Request, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		handleError(w, r, err)
		return
	}
	etag := `"` + strconv.FormatUint(xxhash.Sum64(body), 16) + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")

	if match := r.Header.Get("If-None-Match"); match != "" {
		for _, candidate := range strings.Split(match, ",") {
			candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
			if candidate == etag || candidate == "*" {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(append(body, '\n'))
}

// int64Param parses a positive integer URL parameter, writing a 400 when it
// is not one.
func int64Param(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}
