package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/accounts"
	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/logger"
)

type AuthHandler struct {
	accounts      *accounts.Service
	carts         *cart.Service
	timeout       time.Duration
	secureCookies bool
}

func NewAuthHandler(accts *accounts.Service, carts *cart.Service, timeout time.Duration, secureCookies bool) *AuthHandler {
	return &AuthHandler{accounts: accts, carts: carts, timeout: timeout, secureCookies: secureCookies}
}

type RegisterRequestDTO struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequestDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AdminLoginRequestDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type MeResponse struct {
	Role    domain.Role        `json:"role"`
	User    *domain.User       `json:"user,omitempty"`
	Loyalty *accounts.Progress `json:"loyalty,omitempty"`
}

// POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req RegisterRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	sess, err := h.accounts.Register(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		handleError(w, r, err)
		return
	}
	h.adoptGuestCart(ctx, r, sess.User.ID)
	h.setCookie(w, sess)
	respondJSON(w, http.StatusCreated, sess)
}

// POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req LoginRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	sess, err := h.accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		handleError(w, r, err)
		return
	}
	h.adoptGuestCart(ctx, r, sess.User.ID)
	h.setCookie(w, sess)
	respondJSON(w, http.StatusOK, sess)
}

// POST /api/v1/admin/login
func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AdminLoginRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	sess, err := h.accounts.AdminLogin(ctx, req.Username, req.Password)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

// POST /api/v1/auth/logout
//
// Tokens are stateless; logging out drops the cookie and the client
// forgets its bearer token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, ok := principalFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}
	if p.Role != domain.RoleCustomer {
		respondJSON(w, http.StatusOK, MeResponse{Role: p.Role})
		return
	}

	u, err := h.accounts.Get(ctx, p.Subject)
	if err != nil {
		handleError(w, r, err)
		return
	}
	progress := h.accounts.Tiers().NextTier(u.LoyaltyPoints)
	respondJSON(w, http.StatusOK, MeResponse{Role: p.Role, User: &u, Loyalty: &progress})
}

// adoptGuestCart moves the caller's guest cart onto the account. A failed
// merge leaves the guest cart in place and does not fail the login.
func (h *AuthHandler) adoptGuestCart(ctx context.Context, r *http.Request, userID string) {
	guest, ok := guestOwner(r)
	if !ok {
		return
	}
	if _, err := h.carts.Merge(ctx, guest, userID); err != nil {
		logger.FromContext(ctx).Warn("failed to merge guest cart", "user_id", userID, "error", err)
	}
}

func (h *AuthHandler) setCookie(w http.ResponseWriter, sess *accounts.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
