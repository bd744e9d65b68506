package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/pricing"
)

type CartHandler struct {
	carts   *cart.Service
	timeout time.Duration
}

func NewCartHandler(carts *cart.Service, timeout time.Duration) *CartHandler {
	return &CartHandler{carts: carts, timeout: timeout}
}

type AddItemRequestDTO struct {
	ProductID     int64                 `json:"product_id"`
	Quantity      int                   `json:"quantity"`
	Size          string                `json:"size,omitempty"`
	Color         string                `json:"color,omitempty"`
	Customization *domain.Customization `json:"customization,omitempty"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

// CartResponse is a cart with its totals.
type CartResponse struct {
	OwnerID string            `json:"owner_id"`
	Lines   []domain.CartLine `json:"lines"`
	Summary pricing.Summary   `json:"summary"`
}

func (h *CartHandler) respondCart(w http.ResponseWriter, status int, c *domain.Cart) {
	lines := c.Lines
	if lines == nil {
		lines = []domain.CartLine{}
	}
	respondJSON(w, status, CartResponse{
		OwnerID: c.OwnerID,
		Lines:   lines,
		Summary: h.carts.Rules().Price(c.Lines),
	})
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, err := h.carts.GetCart(ctx, ownerFrom(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}
	h.respondCart(w, http.StatusOK, c)
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}

	c, err := h.carts.AddItem(ctx, ownerFrom(r.Context()), cart.Item{
		ProductID:     req.ProductID,
		Quantity:      req.Quantity,
		Size:          req.Size,
		Color:         req.Color,
		Customization: req.Customization,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	h.respondCart(w, http.StatusCreated, c)
}

// PUT /api/v1/cart/items/{product_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := int64Param(w, r, "product_id")
	if !ok {
		return
	}
	var req UpdateQuantityRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	c, err := h.carts.UpdateQuantity(ctx, ownerFrom(r.Context()), productID, req.Quantity)
	if err != nil {
		handleError(w, r, err)
		return
	}
	h.respondCart(w, http.StatusOK, c)
}

// DELETE /api/v1/cart/items/{product_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := int64Param(w, r, "product_id")
	if !ok {
		return
	}
	c, err := h.carts.RemoveItem(ctx, ownerFrom(r.Context()), productID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	h.respondCart(w, http.StatusOK, c)
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	owner := ownerFrom(r.Context())
	if err := h.carts.Clear(ctx, owner); err != nil {
		handleError(w, r, err)
		return
	}
	h.respondCart(w, http.StatusOK, &domain.Cart{OwnerID: owner})
}
