package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/storefront/internal/accounts"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/logger"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const (
	HeaderRequestID   = "X-Request-ID"
	HeaderCartSession = "X-Cart-Session"
	TokenCookie       = "storefront_token"
)

type ctxKey int

const (
	principalKey ctxKey = iota
	ownerKey
)

// Principal is the caller identified by a valid token.
type Principal struct {
	Subject string
	Role    domain.Role
}

// TokenParser verifies bearer tokens.
type TokenParser interface {
	ParseToken(token string) (*accounts.Claims, error)
}

func withPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func principalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// customerID returns the signed-in customer's id, or "".
func customerID(ctx context.Context) string {
	if p, ok := principalFrom(ctx); ok && p.Role == domain.RoleCustomer {
		return p.Subject
	}
	return ""
}

// ownerFrom returns the cart owner resolved by CartOwnerMiddleware.
func ownerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey).(string)
	return owner
}

// RequestIDMiddleware adds a unique request ID to each request and to the
// request logger.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = middleware.GetReqID(r.Context())
		}
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := logger.WithRequestID(r.Context(), requestID)
		w.Header().Set(HeaderRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestLogger logs one line per request with status and duration.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		log := logger.FromContext(r.Context())
		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		}
		if ww.Status() >= http.StatusInternalServerError {
			log.Error("http request", attrs...)
			return
		}
		log.Info("http request", attrs...)
	})
}

// AuthMiddleware resolves the caller from a Bearer header or the session
// cookie. Requests without a token pass through anonymously; a token that
// fails verification is rejected.
func AuthMiddleware(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := tokens.ParseToken(token)
			if err != nil {
				respondError(w, http.StatusUnauthorized, "unauthenticated", "invalid or expired token")
				return
			}
			ctx := withPrincipal(r.Context(), Principal{Subject: claims.Subject, Role: claims.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(TokenCookie); err == nil {
		return c.Value
	}
	return ""
}

// RequireRole rejects callers that are not signed in with role.
func RequireRole(role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := principalFrom(r.Context())
			if !ok {
				respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
				return
			}
			if p.Role != role {
				respondError(w, http.StatusForbidden, "forbidden", "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Guest owners are namespaced so a session header can never name a
// customer's cart.
const guestPrefix = "guest:"

// guestOwner returns the guest cart owner named by X-Cart-Session.
func guestOwner(r *http.Request) (string, bool) {
	id := r.Header.Get(HeaderCartSession)
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return guestPrefix + id, true
}

// CartOwnerMiddleware picks the cart owner: the signed-in customer, else
// the guest id from X-Cart-Session. A new guest id is issued when the
// header is missing or malformed.
func CartOwnerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := customerID(r.Context())
		if owner == "" {
			guest, ok := guestOwner(r)
			if !ok {
				id := uuid.NewString()
				guest = guestPrefix + id
				w.Header().Set(HeaderCartSession, id)
			}
			owner = guest
		}
		ctx := context.WithValue(r.Context(), ownerKey, owner)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
