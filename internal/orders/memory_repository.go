package orders

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fjod/storefront/internal/domain"
)

type MemoryRepository struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
	seq    int64
}

func NewMemoryRepository(seed ...domain.Order) *MemoryRepository {
	r := &MemoryRepository{orders: make(map[string]domain.Order, len(seed))}
	for _, o := range seed {
		r.orders[o.ID] = cloneOrder(o)
		if n := parseID(o.ID); n > r.seq {
			r.seq = n
		}
	}
	return r
}

func cloneOrder(o domain.Order) domain.Order {
	items := make([]domain.OrderItem, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return o
}

func (r *MemoryRepository) Create(_ context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n := parseID(o.ID); n > 0 {
		if _, exists := r.orders[o.ID]; exists {
			return ErrDuplicateOrder
		}
		r.seq = max(r.seq, n)
	} else {
		r.seq++
		o.ID = FormatID(r.seq)
	}
	if o.OrderDate.IsZero() {
		o.OrderDate = time.Now().UTC()
	}
	if o.Status == "" {
		o.Status = domain.OrderStatusPending
	}
	r.orders[o.ID] = cloneOrder(*o)
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return domain.Order{}, ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (r *MemoryRepository) List(context.Context) ([]domain.Order, error) {
	return r.filter(func(domain.Order) bool { return true }), nil
}

func (r *MemoryRepository) ListByCustomer(_ context.Context, customerID string) ([]domain.Order, error) {
	return r.filter(func(o domain.Order) bool { return o.CustomerID == customerID }), nil
}

func (r *MemoryRepository) filter(keep func(domain.Order) bool) []domain.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Order, 0, len(r.orders))
	for _, o := range r.orders {
		if keep(o) {
			out = append(out, cloneOrder(o))
		}
	}
	sortNewestFirst(out)
	return out
}

func (r *MemoryRepository) UpdateStatus(_ context.Context, id string, status domain.OrderStatus, tracking string) (domain.Order, error) {
	if !status.Valid() {
		return domain.Order{}, ErrInvalidStatus
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return domain.Order{}, ErrOrderNotFound
	}
	o.Status = status
	if tracking != "" {
		o.TrackingNumber = tracking
	}
	r.orders[id] = o
	return cloneOrder(o), nil
}

func (r *MemoryRepository) Close() error {
	return nil
}

func sortNewestFirst(orders []domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].OrderDate.Equal(orders[j].OrderDate) {
			return orders[i].OrderDate.After(orders[j].OrderDate)
		}
		return parseID(orders[i].ID) > parseID(orders[j].ID)
	})
}
