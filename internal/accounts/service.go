// Package accounts manages customers, sessions and loyalty points.
package accounts

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// DemoUserID identifies the seeded demo customer.
const DemoUserID = "00000000-0000-0000-0000-000000000001"

type Options struct {
	Tiers         Tiers
	PointsUnit    decimal.Decimal
	AdminUsername string
	AdminPassword string
}

// Session is a signed-in principal and its bearer token.
type Session struct {
	User      *domain.User `json:"user,omitempty"`
	Role      domain.Role  `json:"role"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

type Service struct {
	store  Store
	tokens *TokenIssuer
	opts   Options
}

func NewService(store Store, tokens *TokenIssuer, opts Options) *Service {
	opts.Tiers = NewTiers(opts.Tiers)
	if !opts.PointsUnit.IsPositive() {
		opts.PointsUnit = decimal.NewFromInt(10)
	}
	return &Service{store: store, tokens: tokens, opts: opts}
}

// Tiers returns the loyalty ladder in use.
func (s *Service) Tiers() Tiers {
	return s.opts.Tiers
}

func (s *Service) Register(ctx context.Context, name, email, password string) (*Session, error) {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if err := validateProfile(name, email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidUser)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		LoyaltyTier:  s.opts.Tiers.TierFor(0),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.Create(ctx, u); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("customer registered", "user_id", u.ID)
	return s.session(u)
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.store.GetByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.session(u)
}

// AdminLogin checks the configured back-office credentials.
func (s *Service) AdminLogin(_ context.Context, username, password string) (*Session, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.opts.AdminUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.opts.AdminPassword)) == 1
	if s.opts.AdminUsername == "" || !userOK || !passOK {
		return nil, ErrInvalidCredentials
	}
	token, expires, err := s.tokens.Issue("admin:"+username, domain.RoleAdmin)
	if err != nil {
		return nil, err
	}
	return &Session{Role: domain.RoleAdmin, Token: token, ExpiresAt: expires}, nil
}

// ParseToken verifies a bearer token and returns its claims.
func (s *Service) ParseToken(token string) (*Claims, error) {
	return s.tokens.Parse(token)
}

func (s *Service) Get(ctx context.Context, id string) (domain.User, error) {
	return s.store.GetByID(ctx, id)
}

// UpdateProfile changes name and/or email. Nil fields are left alone.
func (s *Service) UpdateProfile(ctx context.Context, id string, patch domain.ProfilePatch) (domain.User, error) {
	return s.store.Update(ctx, id, func(u *domain.User) error {
		if patch.Name != nil {
			u.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Email != nil {
			u.Email = strings.TrimSpace(*patch.Email)
		}
		return validateProfile(u.Name, u.Email)
	})
}

// AwardPoints credits the points earned on an order total and moves the
// user to the tier the new balance reaches. It returns the points added.
func (s *Service) AwardPoints(ctx context.Context, id string, orderTotal decimal.Decimal) (domain.User, int, error) {
	earned := PointsFor(orderTotal, s.opts.PointsUnit)
	u, err := s.store.Update(ctx, id, func(u *domain.User) error {
		u.LoyaltyPoints += earned
		u.LoyaltyTier = s.opts.Tiers.TierFor(u.LoyaltyPoints)
		return nil
	})
	if err != nil {
		return domain.User{}, 0, err
	}
	return u, earned, nil
}

// SeedDemoUser installs the demo customer if the email is free.
func (s *Service) SeedDemoUser(ctx context.Context, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	err = s.store.Create(ctx, domain.User{
		ID:            DemoUserID,
		Name:          "Demo User",
		Email:         email,
		PasswordHash:  hash,
		LoyaltyTier:   domain.TierGold,
		LoyaltyPoints: 2450,
		CreatedAt:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if errors.Is(err, ErrEmailTaken) {
		return nil
	}
	return err
}

func (s *Service) session(u domain.User) (*Session, error) {
	token, expires, err := s.tokens.Issue(u.ID, domain.RoleCustomer)
	if err != nil {
		return nil, err
	}
	return &Session{User: &u, Role: domain.RoleCustomer, Token: token, ExpiresAt: expires}, nil
}

func validateProfile(name, email string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidUser)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: invalid email", ErrInvalidUser)
	}
	return nil
}
