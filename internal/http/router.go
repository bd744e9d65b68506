// Package http exposes the storefront over a JSON REST API.
package http

import (
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Handlers struct {
	Products *ProductHandler
	Auth     *AuthHandler
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Profile  *ProfileHandler
	Admin    *AdminHandler
}

type RouterOptions struct {
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// NewRouter mounts every route under /api/v1 behind the shared middleware
// chain.
func NewRouter(h Handlers, tokens TokenParser, opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}
	if opts.MaxBodyBytes > 0 {
		r.Use(middleware.RequestSize(opts.MaxBodyBytes))
	}
	r.Use(middleware.Compress(5))

	r.Get("/health", health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(tokens))

		r.Get("/health", health)

		r.Get("/products", h.Products.ListProducts)
		r.Get("/products/compare", h.Products.Compare)
		r.Get("/products/customizable", h.Products.ListCustomizable)
		r.Get("/products/{id}", h.Products.GetProduct)
		r.Get("/categories", h.Products.ListCategories)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Auth.Register)
			r.Post("/login", h.Auth.Login)
			r.Post("/logout", h.Auth.Logout)
			r.Get("/me", h.Auth.Me)
		})

		r.Group(func(r chi.Router) {
			r.Use(CartOwnerMiddleware)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.Cart.GetCart)
				r.Delete("/", h.Cart.ClearCart)
				r.Post("/items", h.Cart.AddItem)
				r.Put("/items/{product_id}", h.Cart.UpdateQuantity)
				r.Delete("/items/{product_id}", h.Cart.RemoveItem)
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Post("/", h.Checkout.InitiateCheckout)
				r.Get("/{id}", h.Checkout.GetCheckout)
				r.Post("/{id}/auth", h.Checkout.Authenticate)
				r.Post("/{id}/shipping", h.Checkout.SubmitShipping)
				r.Post("/{id}/payment", h.Checkout.SubmitPayment)
			})
		})

		r.Route("/profile", func(r chi.Router) {
			r.Use(RequireRole(domain.RoleCustomer))
			r.Get("/", h.Profile.GetProfile)
			r.Patch("/", h.Profile.UpdateProfile)
			r.Get("/orders", h.Profile.ListOrders)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", h.Auth.AdminLogin)

			r.Group(func(r chi.Router) {
				r.Use(RequireRole(domain.RoleAdmin))
				r.Get("/products", h.Admin.ListProducts)
				r.Post("/products", h.Admin.CreateProduct)
				r.Put("/products/{id}", h.Admin.UpdateProduct)
				r.Delete("/products/{id}", h.Admin.DeleteProduct)
				r.Get("/orders", h.Admin.ListOrders)
				r.Put("/orders/{id}/status", h.Admin.UpdateOrderStatus)
				r.Get("/analytics", h.Admin.Analytics)
			})
		})
	})

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
