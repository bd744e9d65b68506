package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fjod/storefront/internal/accounts"
	"github.com/fjod/storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenService(tokens *accounts.TokenIssuer) *accounts.Service {
	return accounts.NewService(accounts.NewMemoryStore(), tokens, accounts.Options{})
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, bearerToken(req))

	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: "from-cookie"})
	assert.Equal(t, "from-cookie", bearerToken(req))

	req.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-header", bearerToken(req))

	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	assert.Equal(t, "from-cookie", bearerToken(req))
}

func TestAuthMiddleware_CookieSession(t *testing.T) {
	tokens := accounts.NewTokenIssuer("test-secret", time.Hour)
	token, _, err := tokens.Issue("user-1", domain.RoleCustomer)
	require.NoError(t, err)

	var got Principal
	h := AuthMiddleware(tokenService(tokens))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = principalFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: token})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, Principal{Subject: "user-1", Role: domain.RoleCustomer}, got)
}

func TestAuthMiddleware_ForeignSecret(t *testing.T) {
	token, _, err := accounts.NewTokenIssuer("other-secret", time.Hour).Issue("user-1", domain.RoleAdmin)
	require.NoError(t, err)

	h := AuthMiddleware(tokenService(accounts.NewTokenIssuer("test-secret", time.Hour)))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCartOwnerMiddleware(t *testing.T) {
	var owner string
	h := CartOwnerMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner = ownerFrom(r.Context())
	}))

	t.Run("malformed session is replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderCartSession, "00000000-0000-0000-0000-000000000001x")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		issued := rec.Header().Get(HeaderCartSession)
		require.NotEmpty(t, issued)
		assert.Equal(t, guestPrefix+issued, owner)
	})

	t.Run("guest session cannot name a customer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderCartSession, accounts.DemoUserID)
		h.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, guestPrefix+accounts.DemoUserID, owner)
	})

	t.Run("signed-in customer owns their cart", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderCartSession, accounts.DemoUserID)
		ctx := req.Context()
		req = req.WithContext(withPrincipal(ctx, Principal{Subject: "user-7", Role: domain.RoleCustomer}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "user-7", owner)
		assert.Empty(t, rec.Header().Get(HeaderCartSession))
	})
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(domain.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name      string
		principal *Principal
		want      int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"customer", &Principal{Subject: "u", Role: domain.RoleCustomer}, http.StatusForbidden},
		{"admin", &Principal{Subject: "admin:admin", Role: domain.RoleAdmin}, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.principal != nil {
				req = req.WithContext(withPrincipal(req.Context(), *tc.principal))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}
