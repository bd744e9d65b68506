package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/accounts"
	"github.com/fjod/storefront/internal/checkout"
	"github.com/fjod/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

const HeaderIdempotencyKey = "Idempotency-Key"

type CheckoutHandler struct {
	checkout *checkout.Service
	timeout  time.Duration
}

func NewCheckoutHandler(svc *checkout.Service, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{checkout: svc, timeout: timeout}
}

// CheckoutAuthResponse carries the account session when the auth step
// signed the caller in. Later steps must send that token.
type CheckoutAuthResponse struct {
	Checkout domain.CheckoutSession `json:"checkout"`
	Account  *accounts.Session      `json:"account,omitempty"`
}

// POST /api/v1/checkout
func (h *CheckoutHandler) InitiateCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sess, err := h.checkout.Begin(ctx, ownerFrom(r.Context()), customerID(r.Context()), r.Header.Get(HeaderIdempotencyKey))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, sess)
}

// GET /api/v1/checkout/{id}
func (h *CheckoutHandler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sess, err := h.checkout.Get(ctx, ownerFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

// POST /api/v1/checkout/{id}/auth
func (h *CheckoutHandler) Authenticate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var cred checkout.Credentials
	if err := decodeJSON(r, &cred); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	sess, acct, err := h.checkout.Authenticate(ctx, ownerFrom(r.Context()), chi.URLParam(r, "id"), cred)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, CheckoutAuthResponse{Checkout: sess, Account: acct})
}

// POST /api/v1/checkout/{id}/shipping
func (h *CheckoutHandler) SubmitShipping(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var addr domain.ShippingAddress
	if err := decodeJSON(r, &addr); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	sess, err := h.checkout.SubmitShipping(ctx, ownerFrom(r.Context()), chi.URLParam(r, "id"), addr)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

// POST /api/v1/checkout/{id}/payment
func (h *CheckoutHandler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var card domain.PaymentDetails
	if err := decodeJSON(r, &card); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	res, err := h.checkout.SubmitPayment(ctx, ownerFrom(r.Context()), chi.URLParam(r, "id"), card)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}
