package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/accounts"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/orders"
)

type ProfileHandler struct {
	accounts *accounts.Service
	orders   orders.Repository
	timeout  time.Duration
}

func NewProfileHandler(accts *accounts.Service, orderRepo orders.Repository, timeout time.Duration) *ProfileHandler {
	return &ProfileHandler{accounts: accts, orders: orderRepo, timeout: timeout}
}

type ProfileResponse struct {
	User    domain.User       `json:"user"`
	Loyalty accounts.Progress `json:"loyalty"`
}

type OrdersResponse struct {
	Orders []domain.Order `json:"orders"`
	Total  int            `json:"total"`
}

func (h *ProfileHandler) respondProfile(w http.ResponseWriter, u domain.User) {
	respondJSON(w, http.StatusOK, ProfileResponse{
		User:    u,
		Loyalty: h.accounts.Tiers().NextTier(u.LoyaltyPoints),
	})
}

// GET /api/v1/profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	u, err := h.accounts.Get(ctx, customerID(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}
	h.respondProfile(w, u)
}

// PATCH /api/v1/profile
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var patch domain.ProfilePatch
	if err := decodeJSON(r, &patch); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	u, err := h.accounts.UpdateProfile(ctx, customerID(r.Context()), patch)
	if err != nil {
		handleError(w, r, err)
		return
	}
	h.respondProfile(w, u)
}

// GET /api/v1/profile/orders
func (h *ProfileHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	list, err := h.orders.ListByCustomer(ctx, customerID(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}
	if list == nil {
		list = []domain.Order{}
	}
	respondJSON(w, http.StatusOK, OrdersResponse{Orders: list, Total: len(list)})
}
