package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fjod/storefront/internal/accounts"
	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/catalog"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/events"
	"github.com/fjod/storefront/internal/orders"
	"github.com/fjod/storefront/internal/payment"
	"github.com/fjod/storefront/internal/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc      *Service
	carts    *cart.Service
	products *catalog.MemoryStore
	accounts *accounts.Service
	orders   *orders.MemoryRepository
	outbox   *events.MemoryOutbox
}

type decliningGateway struct{}

func (decliningGateway) Charge(context.Context, payment.Charge) (payment.Receipt, error) {
	return payment.Receipt{}, payment.ErrDeclined
}

func setup(t *testing.T, gw payment.Gateway) *fixture {
	t.Helper()
	ctx := context.Background()

	products := catalog.NewMemoryStore(catalog.DemoProducts()...)
	carts := cart.NewService(cart.NewMemoryRepository(), cart.NoopCache{}, products, pricing.DefaultRules(), cart.DefaultMaxQuantity)
	accts := accounts.NewService(accounts.NewMemoryStore(), accounts.NewTokenIssuer("test", time.Hour), accounts.Options{})
	require.NoError(t, accts.SeedDemoUser(ctx, "demo@example.com", "demo123"))
	orderRepo := orders.NewMemoryRepository(orders.DemoOrders(accounts.DemoUserID)...)
	outbox := events.NewMemoryOutbox()

	if gw == nil {
		gw = payment.StubGateway{}
	}
	svc := NewService(carts, accts, products, orderRepo, gw, outbox, pricing.DefaultRules())
	return &fixture{svc: svc, carts: carts, products: products, accounts: accts, orders: orderRepo, outbox: outbox}
}

func (f *fixture) fillCart(t *testing.T, owner string, items ...cart.Item) {
	t.Helper()
	for _, it := range items {
		_, err := f.carts.AddItem(context.Background(), owner, it)
		require.NoError(t, err)
	}
}

func address() domain.ShippingAddress {
	return domain.ShippingAddress{
		FirstName:  "Sarah",
		LastName:   "Johnson",
		Email:      "sarah@example.com",
		Phone:      "+27 21 555 0100",
		Address:    "123 Main St",
		City:       "Cape Town",
		Province:   "Western Cape",
		PostalCode: "8001",
	}
}

func card() domain.PaymentDetails {
	return domain.PaymentDetails{CardNumber: "4111111111111111", ExpiryDate: "12/27", CVV: "123", NameOnCard: "Sarah Johnson"}
}

func TestBegin_EmptyCart(t *testing.T) {
	f := setup(t, nil)

	_, err := f.svc.Begin(context.Background(), "guest-1", "", "")
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestBegin_SignedInSkipsAuth(t *testing.T) {
	f := setup(t, nil)
	f.fillCart(t, accounts.DemoUserID, cart.Item{ProductID: 1, Quantity: 1})

	sess, err := f.svc.Begin(context.Background(), accounts.DemoUserID, accounts.DemoUserID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StepShipping, sess.Step)
	assert.Equal(t, accounts.DemoUserID, sess.UserID)
}

func TestBegin_IdempotencyKey(t *testing.T) {
	f := setup(t, nil)
	f.fillCart(t, "guest-1", cart.Item{ProductID: 1, Quantity: 1})
	ctx := context.Background()

	first, err := f.svc.Begin(ctx, "guest-1", "", "key-1")
	require.NoError(t, err)
	second, err := f.svc.Begin(ctx, "guest-1", "", "key-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	third, err := f.svc.Begin(ctx, "guest-1", "", "key-2")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestBegin_ConcurrentSameIdempotencyKey(t *testing.T) {
	f := setup(t, nil)
	f.fillCart(t, "guest-1", cart.Item{ProductID: 1, Quantity: 1})
	ctx := context.Background()

	const n = 20
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, err := f.svc.Begin(ctx, "guest-1", "", "same-key")
			assert.NoError(t, err)
			ids[i] = sess.ID
		}()
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	f.svc.mu.RLock()
	assert.Len(t, f.svc.sessions, 1)
	f.svc.mu.RUnlock()
}

func TestGuestCheckout_FullFlow(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	f.fillCart(t, "guest-1", cart.Item{ProductID: 1, Quantity: 2})

	sess, err := f.svc.Begin(ctx, "guest-1", "", "")
	require.NoError(t, err)
	assert.Equal(t, domain.StepAuth, sess.Step)

	sess, acct, err := f.svc.Authenticate(ctx, "guest-1", sess.ID, Credentials{Mode: domain.AuthGuest})
	require.NoError(t, err)
	assert.Nil(t, acct)
	assert.Equal(t, domain.StepShipping, sess.Step)
	assert.Equal(t, domain.AuthGuest, sess.AuthMode)

	sess, err = f.svc.SubmitShipping(ctx, "guest-1", sess.ID, address())
	require.NoError(t, err)
	assert.Equal(t, domain.StepPayment, sess.Step)

	res, err := f.svc.SubmitPayment(ctx, "guest-1", sess.ID, card())
	require.NoError(t, err)
	assert.Equal(t, domain.StepComplete, res.Session.Step)
	assert.Equal(t, "ORD-003", res.Order.ID)
	assert.Equal(t, res.Order.ID, res.Session.OrderID)
	assert.Equal(t, "599.98", res.Order.Total.String())
	assert.True(t, res.Order.Shipping.IsZero())
	assert.Equal(t, domain.OrderStatusPending, res.Order.Status)
	assert.Equal(t, "Sarah Johnson", res.Order.CustomerName)
	assert.Equal(t, "123 Main St, Cape Town, Western Cape 8001", res.Order.ShippingAddress)
	assert.Equal(t, res.Receipt.ID, res.Order.PaymentID)
	assert.Zero(t, res.PointsEarned)

	stored, err := f.orders.Get(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Order.Total, stored.Total)

	p, _ := f.products.Get(ctx, 1)
	assert.Equal(t, 13, p.Stock)

	c, err := f.carts.GetCart(ctx, "guest-1")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())

	assert.Equal(t, 1, f.outbox.Len())
}

func TestLoginDuringCheckout_MovesCartAndAwardsPoints(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	f.fillCart(t, "guest-1", cart.Item{ProductID: 2, Quantity: 1})

	sess, err := f.svc.Begin(ctx, "guest-1", "", "")
	require.NoError(t, err)

	sess, acct, err := f.svc.Authenticate(ctx, "guest-1", sess.ID, Credentials{
		Mode: domain.AuthLogin, Email: "demo@example.com", Password: "demo123",
	})
	require.NoError(t, err)
	require.NotNil(t, acct)
	assert.Equal(t, accounts.DemoUserID, sess.OwnerID)

	_, err = f.svc.Get(ctx, "guest-1", sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = f.svc.SubmitShipping(ctx, accounts.DemoUserID, sess.ID, address())
	require.NoError(t, err)
	res, err := f.svc.SubmitPayment(ctx, accounts.DemoUserID, sess.ID, card())
	require.NoError(t, err)

	assert.Equal(t, "199.99", res.Order.Total.String())
	assert.Equal(t, 19, res.PointsEarned)

	u, err := f.accounts.Get(ctx, accounts.DemoUserID)
	require.NoError(t, err)
	assert.Equal(t, 2469, u.LoyaltyPoints)

	history, err := f.orders.ListByCustomer(ctx, accounts.DemoUserID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestAuthenticate_BadLoginStaysAtAuth(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	f.fillCart(t, "guest-1", cart.Item{ProductID: 2, Quantity: 1})

	sess, err := f.svc.Begin(ctx, "guest-1", "", "")
	require.NoError(t, err)

	_, _, err = f.svc.Authenticate(ctx, "guest-1", sess.ID, Credentials{Mode: domain.AuthLogin, Email: "demo@example.com", Password: "x"})
	assert.ErrorIs(t, err, accounts.ErrInvalidCredentials)

	_, _, err = f.svc.Authenticate(ctx, "guest-1", sess.ID, Credentials{Mode: "magic"})
	assert.ErrorIs(t, err, ErrInvalidAuthMode)

	got, err := f.svc.Get(ctx, "guest-1", sess.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StepAuth, got.Step)
}

func TestSteps_AreMonotonic(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	f.fillCart(t, "guest-1", cart.Item{ProductID: 3, Quantity: 1})

	sess, err := f.svc.Begin(ctx, "guest-1", "", "")
	require.NoError(t, err)

	_, err = f.svc.SubmitShipping(ctx, "guest-1", sess.ID, address())
	assert.ErrorIs(t, err, ErrIllegalTransition)
	_, err = f.svc.SubmitPayment(ctx, "guest-1", sess.ID, card())
	assert.ErrorIs(t, err, ErrIllegalTransition)

	_, _, err = f.svc.Authenticate(ctx, "guest-1", sess.ID, Credentials{Mode: domain.AuthGuest})
	require.NoError(t, err)

	_, _, err = f.svc.Authenticate(ctx, "guest-1", sess.ID, Credentials{Mode: domain.AuthGuest})
	assert.ErrorIs(t, err, ErrIllegalTransition)

	_, err = f.svc.SubmitShipping(ctx, "guest-1", sess.ID, address())
	require.NoError(t, err)

	_, err = f.svc.SubmitShipping(ctx, "guest-1", sess.ID, address())
	assert.ErrorIs(t, err, ErrIllegalTransition)

	_, err = f.svc.SubmitPayment(ctx, "guest-1", sess.ID, card())
	require.NoError(t, err)

	_, err = f.svc.SubmitPayment(ctx, "guest-1", sess.ID, card())
	assert.ErrorIs(t, err, ErrIllegalTransition)
	_, _, err = f.svc.Authenticate(ctx, "guest-1", sess.ID, Credentials{Mode: domain.AuthGuest})
	assert.ErrorIs(t, err, ErrIllegalTransition)

	got, err := f.svc.Get(ctx, "guest-1", sess.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StepComplete, got.Step)
}

func TestSubmitShipping_Validation(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	f.fillCart(t, "u", cart.Item{ProductID: 3, Quantity: 1})

	sess, err := f.svc.Begin(ctx, "u", "u", "")
	require.NoError(t, err)

	bad := address()
	bad.City = ""
	bad.PostalCode = " "
	_, err = f.svc.SubmitShipping(ctx, "u", sess.ID, bad)
	assert.ErrorIs(t, err, ErrInvalidShipping)
	assert.Contains(t, err.Error(), "city, postal_code")

	bad = address()
	bad.Email = "nope"
	_, err = f.svc.SubmitShipping(ctx, "u", sess.ID, bad)
	assert.ErrorIs(t, err, ErrInvalidShipping)

	bad = address()
	bad.Phone = ""
	bad.Province = "  "
	_, err = f.svc.SubmitShipping(ctx, "u", sess.ID, bad)
	assert.ErrorIs(t, err, ErrInvalidShipping)
	assert.Contains(t, err.Error(), "phone, province")

	got, err := f.svc.Get(ctx, "u", sess.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StepShipping, got.Step)

	_, err = f.svc.SubmitShipping(ctx, "u", sess.ID, address())
	require.NoError(t, err)
}

func TestSubmitPayment_DeclinedRestocks(t *testing.T) {
	f := setup(t, decliningGateway{})
	ctx := context.Background()
	f.fillCart(t, "u", cart.Item{ProductID: 5, Quantity: 3})

	sess, err := f.svc.Begin(ctx, "u", "u", "")
	require.NoError(t, err)
	_, err = f.svc.SubmitShipping(ctx, "u", sess.ID, address())
	require.NoError(t, err)

	_, err = f.svc.SubmitPayment(ctx, "u", sess.ID, card())
	assert.ErrorIs(t, err, payment.ErrDeclined)

	p, _ := f.products.Get(ctx, 5)
	assert.Equal(t, 8, p.Stock)

	got, _ := f.svc.Get(ctx, "u", sess.ID)
	assert.Equal(t, domain.StepPayment, got.Step)
	assert.Equal(t, 0, f.outbox.Len())

	c, _ := f.carts.GetCart(ctx, "u")
	assert.False(t, c.IsEmpty())
}

func TestSubmitPayment_InsufficientStock(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	f.fillCart(t, "u", cart.Item{ProductID: 5, Quantity: 5})

	sess, err := f.svc.Begin(ctx, "u", "u", "")
	require.NoError(t, err)
	_, err = f.svc.SubmitShipping(ctx, "u", sess.ID, address())
	require.NoError(t, err)

	require.NoError(t, f.products.Deduct(ctx, []catalog.StockChange{{ProductID: 5, Quantity: 6}}))

	_, err = f.svc.SubmitPayment(ctx, "u", sess.ID, card())
	assert.ErrorIs(t, err, catalog.ErrInsufficientStock)
}

func TestSubmitPayment_InvalidCard(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	f.fillCart(t, "u", cart.Item{ProductID: 5, Quantity: 1})

	sess, _ := f.svc.Begin(ctx, "u", "u", "")
	_, err := f.svc.SubmitShipping(ctx, "u", sess.ID, address())
	require.NoError(t, err)

	bad := card()
	bad.CVV = ""
	_, err = f.svc.SubmitPayment(ctx, "u", sess.ID, bad)
	assert.ErrorIs(t, err, payment.ErrInvalidCard)

	p, _ := f.products.Get(ctx, 5)
	assert.Equal(t, 8, p.Stock)
}

func TestSubmitPayment_AcceptsAnyFilledInCard(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	f.fillCart(t, "u", cart.Item{ProductID: 5, Quantity: 1})

	sess, _ := f.svc.Begin(ctx, "u", "u", "")
	_, err := f.svc.SubmitShipping(ctx, "u", sess.ID, address())
	require.NoError(t, err)

	res, err := f.svc.SubmitPayment(ctx, "u", sess.ID, domain.PaymentDetails{
		CardNumber: "4242",
		ExpiryDate: "12/27",
		CVV:        "12",
		NameOnCard: "Sarah Johnson",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StepComplete, res.Session.Step)
	assert.Equal(t, "4242", res.Receipt.CardLast4)

	_, err = f.orders.Get(ctx, res.Order.ID)
	require.NoError(t, err)
}

func TestSubmitPayment_ConcurrentDoubleSubmit(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	f.fillCart(t, "u", cart.Item{ProductID: 1, Quantity: 1})

	sess, _ := f.svc.Begin(ctx, "u", "u", "")
	_, err := f.svc.SubmitShipping(ctx, "u", sess.ID, address())
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.SubmitPayment(ctx, "u", sess.ID, card())
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, errors.Is(err, ErrIllegalTransition), "unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, f.outbox.Len())
}

func TestSweep(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	f.fillCart(t, "u", cart.Item{ProductID: 1, Quantity: 1})

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return base }
	sess, err := f.svc.Begin(ctx, "u", "u", "k")
	require.NoError(t, err)

	f.svc.now = func() time.Time { return base.Add(10 * time.Minute) }
	assert.Zero(t, f.svc.Sweep(30*time.Minute))

	f.svc.now = func() time.Time { return base.Add(time.Hour) }
	assert.Equal(t, 1, f.svc.Sweep(30*time.Minute))

	_, err = f.svc.Get(ctx, "u", sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
