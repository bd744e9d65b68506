package catalog

import (
	"context"
	"errors"

	"github.com/fjod/storefront/internal/domain"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidProduct    = errors.New("invalid product")
	ErrTooManyToCompare  = errors.New("at most three products can be compared")
)

// StockChange is one product's share of a stock deduction.
type StockChange struct {
	ProductID int64
	Quantity  int
}

// Store defines catalog storage operations.
type Store interface {
	// List returns every product in catalog order (ascending id).
	List(ctx context.Context) ([]domain.Product, error)

	Get(ctx context.Context, id int64) (domain.Product, error)

	// Create assigns the next id (highest existing id + 1) and stores p.
	Create(ctx context.Context, p domain.Product) (domain.Product, error)

	Update(ctx context.Context, id int64, patch domain.ProductPatch) (domain.Product, error)

	// Delete removes exactly one product.
	Delete(ctx context.Context, id int64) error

	// Deduct removes stock for all changes or none of them.
	Deduct(ctx context.Context, changes []StockChange) error

	// Restock puts stock back after a failed checkout.
	Restock(ctx context.Context, changes []StockChange) error

	Close() error
}

// Validate checks the fields an admin must supply.
func Validate(p domain.Product) error {
	if p.Name == "" {
		return errors.Join(ErrInvalidProduct, errors.New("name is required"))
	}
	if p.Price.IsNegative() {
		return errors.Join(ErrInvalidProduct, errors.New("price must not be negative"))
	}
	if p.Stock < 0 {
		return errors.Join(ErrInvalidProduct, errors.New("stock must not be negative"))
	}
	return nil
}
