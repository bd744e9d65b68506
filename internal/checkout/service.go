// Package checkout runs the three-step checkout: authenticate, collect a
// shipping address, take payment. Steps only move forward.
package checkout

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/fjod/storefront/internal/accounts"
	"github.com/fjod/storefront/internal/catalog"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/events"
	"github.com/fjod/storefront/internal/logger"
	"github.com/fjod/storefront/internal/orders"
	"github.com/fjod/storefront/internal/payment"
	"github.com/fjod/storefront/internal/pricing"
	"github.com/google/uuid"
)

// Credentials are the fields of the auth step. Name is only read when
// registering.
type Credentials struct {
	Mode     domain.AuthMode `json:"mode"`
	Name     string          `json:"name,omitempty"`
	Email    string          `json:"email,omitempty"`
	Password string          `json:"password,omitempty"`
}

// Result is returned when payment completes the checkout.
type Result struct {
	Session      domain.CheckoutSession `json:"session"`
	Order        domain.Order           `json:"order"`
	Receipt      payment.Receipt        `json:"receipt"`
	PointsEarned int                    `json:"points_earned"`
}

type entry struct {
	mu      sync.Mutex
	session domain.CheckoutSession
}

type Service struct {
	carts    Carts
	accounts Accounts
	stock    Stock
	orders   orders.Repository
	gateway  payment.Gateway
	outbox   events.Outbox
	rules    pricing.Rules

	mu          sync.RWMutex
	sessions    map[string]*entry
	idempotency map[string]string
	now         func() time.Time
}

func NewService(
	carts Carts,
	accts Accounts,
	stock Stock,
	orderRepo orders.Repository,
	gateway payment.Gateway,
	outbox events.Outbox,
	rules pricing.Rules,
) *Service {
	return &Service{
		carts:       carts,
		accounts:    accts,
		stock:       stock,
		orders:      orderRepo,
		gateway:     gateway,
		outbox:      outbox,
		rules:       rules,
		sessions:    make(map[string]*entry),
		idempotency: make(map[string]string),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Begin opens a session for the owner's cart. A signed-in user skips the
// auth step. Repeating a request with the same idempotency key returns the
// session it created.
func (s *Service) Begin(ctx context.Context, ownerID, userID, idempotencyKey string) (domain.CheckoutSession, error) {
	if idempotencyKey != "" {
		s.mu.RLock()
		id, ok := s.idempotency[idempotencyKey]
		s.mu.RUnlock()
		if ok {
			logger.FromContext(ctx).Info("duplicate checkout request", "idempotency_key", idempotencyKey, "checkout_id", id)
			return s.Get(ctx, ownerID, id)
		}
	}

	c, err := s.carts.GetCart(ctx, ownerID)
	if err != nil {
		return domain.CheckoutSession{}, err
	}
	if c.IsEmpty() {
		return domain.CheckoutSession{}, ErrEmptyCart
	}

	now := s.now()
	sess := domain.CheckoutSession{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Step:      domain.StepAuth,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if userID != "" {
		sess.UserID = userID
		sess.AuthMode = domain.AuthLogin
		sess.Step = domain.StepShipping
	}

	s.mu.Lock()
	if idempotencyKey != "" {
		if id, ok := s.idempotency[idempotencyKey]; ok {
			s.mu.Unlock()
			return s.Get(ctx, ownerID, id)
		}
		s.idempotency[idempotencyKey] = sess.ID
	}
	s.sessions[sess.ID] = &entry{session: sess}
	s.mu.Unlock()

	logger.FromContext(ctx).Info("checkout started", "checkout_id", sess.ID, "step", sess.Step)
	return sess, nil
}

// Get returns the session if it belongs to ownerID.
func (s *Service) Get(_ context.Context, ownerID, id string) (domain.CheckoutSession, error) {
	e, err := s.lock(ownerID, id)
	if err != nil {
		return domain.CheckoutSession{}, err
	}
	defer e.mu.Unlock()
	return e.session, nil
}

// Authenticate completes the auth step. Login and register move the guest
// cart onto the account, so the session owner becomes the user. The
// returned accounts session is nil for guests.
func (s *Service) Authenticate(ctx context.Context, ownerID, id string, cred Credentials) (domain.CheckoutSession, *accounts.Session, error) {
	e, err := s.lock(ownerID, id)
	if err != nil {
		return domain.CheckoutSession{}, nil, err
	}
	defer e.mu.Unlock()

	if !e.session.Step.CanTransitionTo(domain.StepShipping) {
		return domain.CheckoutSession{}, nil, ErrIllegalTransition
	}

	var acct *accounts.Session
	switch cred.Mode {
	case domain.AuthGuest:
	case domain.AuthLogin:
		acct, err = s.accounts.Login(ctx, cred.Email, cred.Password)
	case domain.AuthRegister:
		acct, err = s.accounts.Register(ctx, cred.Name, cred.Email, cred.Password)
	default:
		return domain.CheckoutSession{}, nil, ErrInvalidAuthMode
	}
	if err != nil {
		return domain.CheckoutSession{}, nil, err
	}

	if acct != nil {
		userID := acct.User.ID
		if _, err := s.carts.Merge(ctx, e.session.OwnerID, userID); err != nil {
			return domain.CheckoutSession{}, nil, fmt.Errorf("move cart to account: %w", err)
		}
		e.session.OwnerID = userID
		e.session.UserID = userID
	}
	e.session.AuthMode = cred.Mode
	s.advance(e, domain.StepShipping)
	return e.session, acct, nil
}

// SubmitShipping records the delivery address.
func (s *Service) SubmitShipping(ctx context.Context, ownerID, id string, addr domain.ShippingAddress) (domain.CheckoutSession, error) {
	e, err := s.lock(ownerID, id)
	if err != nil {
		return domain.CheckoutSession{}, err
	}
	defer e.mu.Unlock()

	if !e.session.Step.CanTransitionTo(domain.StepPayment) {
		return domain.CheckoutSession{}, ErrIllegalTransition
	}
	if err := ValidateShipping(addr); err != nil {
		return domain.CheckoutSession{}, err
	}

	e.session.Shipping = &addr
	s.advance(e, domain.StepPayment)
	logger.FromContext(ctx).Info("shipping captured", "checkout_id", id)
	return e.session, nil
}

// SubmitPayment charges the cart total and places the order. Stock is
// taken before the charge and returned if the charge or the order fails.
// Cart clearing, points and the event are best effort once the order
// exists.
func (s *Service) SubmitPayment(ctx context.Context, ownerID, id string, card domain.PaymentDetails) (Result, error) {
	e, err := s.lock(ownerID, id)
	if err != nil {
		return Result{}, err
	}
	defer e.mu.Unlock()

	if !e.session.Step.CanTransitionTo(domain.StepComplete) {
		return Result{}, ErrIllegalTransition
	}
	if err := payment.ValidateCard(card); err != nil {
		return Result{}, err
	}

	log := logger.FromContext(ctx).With("checkout_id", id)
	sess := e.session

	c, err := s.carts.GetCart(ctx, sess.OwnerID)
	if err != nil {
		return Result{}, err
	}
	if c.IsEmpty() {
		return Result{}, ErrEmptyCart
	}
	summary := s.rules.Price(c.Lines)

	changes := make([]catalog.StockChange, 0, len(c.Lines))
	items := make([]domain.OrderItem, 0, len(c.Lines))
	for _, l := range c.Lines {
		changes = append(changes, catalog.StockChange{ProductID: l.ProductID, Quantity: l.Quantity})
		items = append(items, domain.OrderItem{
			ProductID:     l.ProductID,
			ProductName:   l.Name,
			Quantity:      l.Quantity,
			Price:         l.Price,
			Customization: l.Customization,
		})
	}

	if err := s.stock.Deduct(ctx, changes); err != nil {
		return Result{}, err
	}
	restock := func(reason error) {
		if err := s.stock.Restock(context.WithoutCancel(ctx), changes); err != nil {
			log.Error("failed to restock after checkout failure", "cause", reason, "error", err)
		}
	}

	receipt, err := s.gateway.Charge(ctx, payment.Charge{
		CheckoutID: id,
		Amount:     summary.Total,
		Currency:   summary.Currency,
		Card:       card,
	})
	if err != nil {
		restock(err)
		return Result{}, err
	}

	order := domain.Order{
		CustomerID:      sess.UserID,
		CustomerName:    sess.Shipping.FullName(),
		CustomerEmail:   sess.Shipping.Email,
		Items:           items,
		Subtotal:        summary.Subtotal,
		Shipping:        summary.Shipping,
		Total:           summary.Total,
		Currency:        summary.Currency,
		Status:          domain.OrderStatusPending,
		OrderDate:       s.now(),
		ShippingAddress: sess.Shipping.Line(),
		PaymentID:       receipt.ID,
	}
	if err := s.orders.Create(ctx, &order); err != nil {
		restock(err)
		return Result{}, fmt.Errorf("create order: %w", err)
	}
	log = log.With("order_id", order.ID)

	if err := s.carts.Clear(ctx, sess.OwnerID); err != nil {
		log.Error("failed to clear cart after order", "error", err)
	}

	points := 0
	if sess.UserID != "" {
		if _, earned, err := s.accounts.AwardPoints(ctx, sess.UserID, order.Total); err != nil {
			log.Error("failed to award loyalty points", "error", err)
		} else {
			points = earned
		}
	}

	if ev, err := events.NewOrderPlaced(order); err != nil {
		log.Error("failed to build order event", "error", err)
	} else if err := s.outbox.Enqueue(ctx, ev); err != nil {
		log.Error("failed to enqueue order event", "error", err)
	}

	e.session.OrderID = order.ID
	s.advance(e, domain.StepComplete)
	log.Info("checkout completed", "total", order.Total.String(), "points", points)

	return Result{Session: e.session, Order: order, Receipt: receipt, PointsEarned: points}, nil
}

// Sweep drops sessions not touched within maxAge and returns how many
// were removed.
func (s *Service) Sweep(maxAge time.Duration) int {
	cutoff := s.now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.sessions {
		if !e.mu.TryLock() {
			continue
		}
		stale := e.session.UpdatedAt.Before(cutoff)
		e.mu.Unlock()
		if stale {
			delete(s.sessions, id)
			removed++
		}
	}
	for key, id := range s.idempotency {
		if _, ok := s.sessions[id]; !ok {
			delete(s.idempotency, key)
		}
	}
	return removed
}

// lock returns the session entry locked, if it belongs to ownerID.
func (s *Service) lock(ownerID, id string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	e.mu.Lock()
	if e.session.OwnerID != ownerID {
		e.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	return e, nil
}

// advance moves the session one step on. Caller holds e.mu and has checked
// the transition.
func (s *Service) advance(e *entry, next domain.CheckoutStep) {
	e.session.Step = next
	e.session.UpdatedAt = s.now()
}

// ValidateShipping checks the required address fields.
func ValidateShipping(a domain.ShippingAddress) error {
	required := []struct{ name, value string }{
		{"first_name", a.FirstName},
		{"last_name", a.LastName},
		{"email", a.Email},
		{"phone", a.Phone},
		{"address", a.Address},
		{"city", a.City},
		{"province", a.Province},
		{"postal_code", a.PostalCode},
	}
	var missing []string
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidShipping, strings.Join(missing, ", "))
	}
	if _, err := mail.ParseAddress(a.Email); err != nil {
		return fmt.Errorf("%w: invalid email", ErrInvalidShipping)
	}
	return nil
}
