package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/logger"
	"github.com/fjod/storefront/internal/pricing"
	"golang.org/x/sync/singleflight"
)

// DefaultMaxQuantity caps the quantity of a single line.
const DefaultMaxQuantity = 99

// Catalog is the product lookup the cart needs.
type Catalog interface {
	Get(ctx context.Context, id int64) (domain.Product, error)
}

// Item is a request to put a product in the cart.
type Item struct {
	ProductID     int64                 `json:"product_id"`
	Quantity      int                   `json:"quantity"`
	Size          string                `json:"size,omitempty"`
	Color         string                `json:"color,omitempty"`
	Customization *domain.Customization `json:"customization,omitempty"`
}

type Service struct {
	repo    Repository
	cache   Cache
	catalog Catalog
	rules   pricing.Rules
	maxQty  int

	sfg    singleflight.Group // Prevents cache stampede
	owners sync.Map           // owner -> *ownerState
}

// ownerState serialises writes to one owner's cart. gen moves on every
// invalidation so a cache fill started before a write can tell it is stale.
type ownerState struct {
	mu  sync.Mutex
	gen atomic.Uint64
}

func NewService(repo Repository, cache Cache, catalog Catalog, rules pricing.Rules, maxQty int) *Service {
	if cache == nil {
		cache = NoopCache{}
	}
	if maxQty <= 0 {
		maxQty = DefaultMaxQuantity
	}
	return &Service{
		repo:    repo,
		cache:   cache,
		catalog: catalog,
		rules:   rules,
		maxQty:  maxQty,
	}
}

// GetCart returns the owner's cart, or an empty one if none is stored.
func (s *Service) GetCart(ctx context.Context, ownerID string) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(ownerID, func() (any, error) {
		st := s.state(ownerID)
		gen := st.gen.Load()

		c, err := s.cache.Get(ctx, ownerID)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, ErrCacheMiss) && logger.Sampled(ownerID, 10) {
			logger.FromContext(ctx).Warn("cart cache get failed", "owner", ownerID, "error", err)
		}

		c, err = s.repo.GetCart(ctx, ownerID)
		if errors.Is(err, ErrCartNotFound) {
			now := time.Now().UTC()
			return &domain.Cart{OwnerID: ownerID, CreatedAt: now, UpdatedAt: now}, nil
		}
		if err != nil {
			return nil, err
		}

		cached := c.Clone()
		go s.fill(ctx, ownerID, st, gen, cached)
		return c, nil
	})
	if err != nil {
		return nil, err
	}

	// callers sharing a flight must not share lines
	return v.(*domain.Cart).Clone(), nil
}

// AddItem snapshots the product into the cart. Adding a product that is
// already in the cart raises that line's quantity.
func (s *Service) AddItem(ctx context.Context, ownerID string, item Item) (*domain.Cart, error) {
	if item.Quantity < 1 || item.Quantity > s.maxQty {
		return nil, fmt.Errorf("%w: must be between 1 and %d", ErrInvalidQuantity, s.maxQty)
	}

	product, err := s.catalog.Get(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.InStock() {
		return nil, ErrOutOfStock
	}

	return s.mutate(ctx, ownerID, func(c *domain.Cart) error {
		if i := c.Line(item.ProductID); i >= 0 {
			qty := c.Lines[i].Quantity + item.Quantity
			if qty > s.maxQty {
				return fmt.Errorf("%w: must be between 1 and %d", ErrInvalidQuantity, s.maxQty)
			}
			if qty > product.Stock {
				return ErrOutOfStock
			}
			c.Lines[i].Quantity = qty
			if item.Size != "" {
				c.Lines[i].Size = item.Size
			}
			if item.Color != "" {
				c.Lines[i].Color = item.Color
			}
			if item.Customization != nil {
				c.Lines[i].Customization = item.Customization
			}
			return nil
		}

		if item.Quantity > product.Stock {
			return ErrOutOfStock
		}
		c.Lines = append(c.Lines, domain.CartLine{
			ProductID:     product.ID,
			Name:          product.Name,
			Price:         product.Price,
			Image:         product.Image,
			Quantity:      item.Quantity,
			Size:          item.Size,
			Color:         item.Color,
			Customization: item.Customization,
			AddedAt:       time.Now().UTC(),
		})
		return nil
	})
}

// UpdateQuantity sets a line's quantity. Zero removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, ownerID string, productID int64, quantity int) (*domain.Cart, error) {
	if quantity < 0 || quantity > s.maxQty {
		return nil, fmt.Errorf("%w: must be between 0 and %d", ErrInvalidQuantity, s.maxQty)
	}
	return s.mutate(ctx, ownerID, func(c *domain.Cart) error {
		if !c.SetQuantity(productID, quantity) {
			return ErrLineNotFound
		}
		return nil
	})
}

func (s *Service) RemoveItem(ctx context.Context, ownerID string, productID int64) (*domain.Cart, error) {
	return s.UpdateQuantity(ctx, ownerID, productID, 0)
}

// Clear empties the cart. Clearing an owner with no cart is not an error.
func (s *Service) Clear(ctx context.Context, ownerID string) error {
	mu := s.lock(ownerID)
	mu.Lock()
	defer mu.Unlock()

	err := s.repo.DeleteCart(ctx, ownerID)
	if err != nil && !errors.Is(err, ErrCartNotFound) {
		logger.FromContext(ctx).Error("repo delete cart failed", "owner", ownerID, "error", err)
		return err
	}
	s.invalidate(ctx, ownerID)
	return nil
}

// Merge moves a guest's lines into another owner's cart, adding quantities
// for products present in both, and deletes the guest cart.
func (s *Service) Merge(ctx context.Context, fromOwner, toOwner string) (*domain.Cart, error) {
	if fromOwner == "" || fromOwner == toOwner {
		return s.GetCart(ctx, toOwner)
	}
	from, err := s.GetCart(ctx, fromOwner)
	if err != nil {
		return nil, err
	}
	if from.IsEmpty() {
		return s.GetCart(ctx, toOwner)
	}

	merged, err := s.mutate(ctx, toOwner, func(c *domain.Cart) error {
		for _, l := range from.Lines {
			if i := c.Line(l.ProductID); i >= 0 {
				c.Lines[i].Quantity = min(c.Lines[i].Quantity+l.Quantity, s.maxQty)
				continue
			}
			c.Lines = append(c.Lines, l)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.Clear(ctx, fromOwner); err != nil {
		return nil, err
	}
	return merged, nil
}

// Summary returns the cart together with its priced totals.
func (s *Service) Summary(ctx context.Context, ownerID string) (*domain.Cart, pricing.Summary, error) {
	c, err := s.GetCart(ctx, ownerID)
	if err != nil {
		return nil, pricing.Summary{}, err
	}
	return c, s.rules.Price(c.Lines), nil
}

// Rules returns the pricing rules the service totals carts with.
func (s *Service) Rules() pricing.Rules {
	return s.rules
}

func (s *Service) mutate(ctx context.Context, ownerID string, fn func(*domain.Cart) error) (*domain.Cart, error) {
	mu := s.lock(ownerID)
	mu.Lock()
	defer mu.Unlock()

	c, err := s.repo.GetCart(ctx, ownerID)
	if errors.Is(err, ErrCartNotFound) {
		c = &domain.Cart{OwnerID: ownerID}
	} else if err != nil {
		return nil, err
	}

	if err := fn(c); err != nil {
		return nil, err
	}

	if c.IsEmpty() {
		if err := s.repo.DeleteCart(ctx, ownerID); err != nil && !errors.Is(err, ErrCartNotFound) {
			logger.FromContext(ctx).Error("repo delete cart failed", "owner", ownerID, "error", err)
			return nil, err
		}
	} else if err := s.repo.SaveCart(ctx, c); err != nil {
		logger.FromContext(ctx).Error("repo save cart failed", "owner", ownerID, "error", err)
		return nil, err
	}

	s.invalidate(ctx, ownerID)
	return c.Clone(), nil
}

func (s *Service) state(ownerID string) *ownerState {
	st, _ := s.owners.LoadOrStore(ownerID, &ownerState{})
	return st.(*ownerState)
}

func (s *Service) lock(ownerID string) *sync.Mutex {
	return &s.state(ownerID).mu
}

// fill caches a cart read at generation gen. It is dropped if the cart was
// written since.
func (s *Service) fill(ctx context.Context, ownerID string, st *ownerState, gen uint64, c *domain.Cart) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.gen.Load() != gen {
		return
	}

	setCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := s.cache.Set(setCtx, ownerID, c); err != nil && logger.Sampled(ownerID, 10) {
		logger.FromContext(ctx).Warn("cart cache set failed", "owner", ownerID, "error", err)
	}
}

// invalidate drops the cached cart. Caller holds the owner lock.
func (s *Service) invalidate(ctx context.Context, ownerID string) {
	s.state(ownerID).gen.Add(1)

	delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := s.cache.Delete(delCtx, ownerID); err != nil {
		logger.FromContext(ctx).Warn("cart cache invalidate failed", "owner", ownerID, "error", err)
	}
}
