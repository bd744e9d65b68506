package catalog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fjod/storefront/internal/domain"
)

// MemoryStore implements Store with in-memory storage.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[int64]domain.Product
}

func NewMemoryStore(seed ...domain.Product) *MemoryStore {
	s := &MemoryStore{products: make(map[int64]domain.Product, len(seed))}
	for _, p := range seed {
		s.products[p.ID] = p
	}
	return s
}

func (s *MemoryStore) List(context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id int64) (domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return domain.Product{}, ErrProductNotFound
	}
	return p, nil
}

func (s *MemoryStore) Create(_ context.Context, p domain.Product) (domain.Product, error) {
	if err := Validate(p); err != nil {
		return domain.Product{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var maxID int64
	for id := range s.products {
		if id > maxID {
			maxID = id
		}
	}
	p.ID = maxID + 1
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	s.products[p.ID] = p
	return p, nil
}

func (s *MemoryStore) Update(_ context.Context, id int64, patch domain.ProductPatch) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return domain.Product{}, ErrProductNotFound
	}
	updated := patch.Apply(p)
	if err := Validate(updated); err != nil {
		return domain.Product{}, err
	}
	s.products[id] = updated
	return updated, nil
}

func (s *MemoryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return ErrProductNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *MemoryStore) Deduct(_ context.Context, changes []StockChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: validate all products have sufficient stock
	need := make(map[int64]int, len(changes))
	for _, c := range changes {
		need[c.ProductID] += c.Quantity
	}
	for id, qty := range need {
		p, ok := s.products[id]
		if !ok {
			return ErrProductNotFound
		}
		if p.Stock < qty {
			return ErrInsufficientStock
		}
	}

	// Second pass: deduct
	for id, qty := range need {
		p := s.products[id]
		p.Stock -= qty
		s.products[id] = p
	}
	return nil
}

func (s *MemoryStore) Restock(_ context.Context, changes []StockChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range changes {
		if _, ok := s.products[c.ProductID]; !ok {
			return ErrProductNotFound
		}
	}
	for _, c := range changes {
		p := s.products[c.ProductID]
		p.Stock += c.Quantity
		s.products[c.ProductID] = p
	}
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
