package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/storefront/internal/accounts"
	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/catalog"
	"github.com/fjod/storefront/internal/checkout"
	"github.com/fjod/storefront/internal/logger"
	"github.com/fjod/storefront/internal/orders"
	"github.com/fjod/storefront/internal/payment"
	"github.com/sony/gobreaker/v2"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.FromContext(context.Background()).Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// decodeJSON reads a JSON body into v. Unknown fields are rejected.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

// errorMapping pairs a domain error with its HTTP status and code.
type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{catalog.ErrProductNotFound, http.StatusNotFound, "product_not_found"},
	{cart.ErrCartNotFound, http.StatusNotFound, "cart_not_found"},
	{cart.ErrLineNotFound, http.StatusNotFound, "item_not_found"},
	{checkout.ErrSessionNotFound, http.StatusNotFound, "checkout_not_found"},
	{orders.ErrOrderNotFound, http.StatusNotFound, "order_not_found"},
	{accounts.ErrUserNotFound, http.StatusNotFound, "user_not_found"},

	{catalog.ErrInvalidProduct, http.StatusBadRequest, "invalid_product"},
	{catalog.ErrTooManyToCompare, http.StatusBadRequest, "too_many_to_compare"},
	{cart.ErrInvalidQuantity, http.StatusBadRequest, "invalid_quantity"},
	{checkout.ErrEmptyCart, http.StatusBadRequest, "empty_cart"},
	{checkout.ErrInvalidShipping, http.StatusBadRequest, "invalid_shipping"},
	{checkout.ErrInvalidAuthMode, http.StatusBadRequest, "invalid_auth_mode"},
	{orders.ErrInvalidStatus, http.StatusBadRequest, "invalid_status"},
	{accounts.ErrInvalidUser, http.StatusBadRequest, "invalid_user"},
	{payment.ErrInvalidCard, http.StatusBadRequest, "invalid_card"},

	{checkout.ErrIllegalTransition, http.StatusConflict, "illegal_transition"},
	{accounts.ErrEmailTaken, http.StatusConflict, "email_taken"},
	{orders.ErrDuplicateOrder, http.StatusConflict, "already_exists"},
	{cart.ErrOutOfStock, http.StatusConflict, "out_of_stock"},
	{catalog.ErrInsufficientStock, http.StatusConflict, "insufficient_stock"},

	{accounts.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{accounts.ErrInvalidToken, http.StatusUnauthorized, "unauthenticated"},

	{payment.ErrDeclined, http.StatusPaymentRequired, "payment_declined"},

	{gobreaker.ErrOpenState, http.StatusServiceUnavailable, "service_unavailable"},
	{gobreaker.ErrTooManyRequests, http.StatusServiceUnavailable, "service_unavailable"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
}

// handleError converts a service error into a JSON error response.
// Unknown errors are logged and reported as internal errors without detail.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			respondError(w, m.status, m.code, err.Error())
			return
		}
	}
	logger.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
	respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}
