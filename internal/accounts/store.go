package accounts

import (
	"context"
	"strings"
	"sync"

	"github.com/fjod/storefront/internal/domain"
)

// Store holds customer accounts. Emails are unique, compared without case.
type Store interface {
	Create(ctx context.Context, u domain.User) error
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	// Update applies fn to the stored user and saves the result as one
	// step. An error from fn leaves the user unchanged.
	Update(ctx context.Context, id string, fn func(*domain.User) error) (domain.User, error)
}

type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]domain.User
	byEmail map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]domain.User),
		byEmail: make(map[string]string),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *MemoryStore) Create(_ context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalizeEmail(u.Email)
	if _, ok := s.byEmail[key]; ok {
		return ErrEmailTaken
	}
	s.byID[u.ID] = u
	s.byEmail[key] = u.ID
	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return u, nil
}

func (s *MemoryStore) GetByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return s.byID[id], nil
}

// Update re-indexes the email if fn changed it.
func (s *MemoryStore) Update(_ context.Context, id string, fn func(*domain.User) error) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.byID[id]
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	u := old
	if err := fn(&u); err != nil {
		return domain.User{}, err
	}
	u.ID = id

	oldKey, newKey := normalizeEmail(old.Email), normalizeEmail(u.Email)
	if oldKey != newKey {
		if _, taken := s.byEmail[newKey]; taken {
			return domain.User{}, ErrEmailTaken
		}
		delete(s.byEmail, oldKey)
		s.byEmail[newKey] = id
	}
	s.byID[id] = u
	return u, nil
}
