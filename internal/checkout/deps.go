package checkout

import (
	"context"

	"github.com/fjod/storefront/internal/accounts"
	"github.com/fjod/storefront/internal/catalog"
	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

// Carts is the part of the cart service checkout reads and empties.
type Carts interface {
	GetCart(ctx context.Context, ownerID string) (*domain.Cart, error)
	Merge(ctx context.Context, fromOwner, toOwner string) (*domain.Cart, error)
	Clear(ctx context.Context, ownerID string) error
}

type Accounts interface {
	Login(ctx context.Context, email, password string) (*accounts.Session, error)
	Register(ctx context.Context, name, email, password string) (*accounts.Session, error)
	Get(ctx context.Context, id string) (domain.User, error)
	AwardPoints(ctx context.Context, id string, orderTotal decimal.Decimal) (domain.User, int, error)
}

type Stock interface {
	Deduct(ctx context.Context, changes []catalog.StockChange) error
	Restock(ctx context.Context, changes []catalog.StockChange) error
}
