package cart

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/storefront/internal/domain"
)

// Repository persists whole carts keyed by owner. The service does the
// line arithmetic; stores only load and save.
type Repository interface {
	GetCart(ctx context.Context, ownerID string) (*domain.Cart, error)
	SaveCart(ctx context.Context, cart *domain.Cart) error
	DeleteCart(ctx context.Context, ownerID string) error
}

type MemoryRepository struct {
	mu    sync.RWMutex
	carts map[string]*domain.Cart
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{carts: make(map[string]*domain.Cart)}
}

func (r *MemoryRepository) GetCart(_ context.Context, ownerID string) (*domain.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.carts[ownerID]
	if !ok {
		return nil, ErrCartNotFound
	}
	return c.Clone(), nil
}

func (r *MemoryRepository) SaveCart(_ context.Context, cart *domain.Cart) error {
	now := time.Now().UTC()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now

	r.mu.Lock()
	defer r.mu.Unlock()
	r.carts[cart.OwnerID] = cart.Clone()
	return nil
}

func (r *MemoryRepository) DeleteCart(_ context.Context, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.carts[ownerID]; !ok {
		return ErrCartNotFound
	}
	delete(r.carts, ownerID)
	return nil
}
