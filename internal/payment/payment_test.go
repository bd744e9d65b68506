package payment

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCard() domain.PaymentDetails {
	return domain.PaymentDetails{
		CardNumber: "4111 1111 1111 1111",
		ExpiryDate: "12/27",
		CVV:        "123",
		NameOnCard: "Demo User",
	}
}

func TestStubGateway_Approves(t *testing.T) {
	r, err := StubGateway{}.Charge(context.Background(), Charge{
		CheckoutID: "chk-1",
		Amount:     decimal.RequireFromString("599.98"),
		Currency:   "ZAR",
		Card:       validCard(),
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(r.ID, "PAY-"))
	assert.Equal(t, StatusApproved, r.Status)
	assert.Equal(t, "1111", r.CardLast4)
	assert.Equal(t, "599.98", r.Amount.String())
}

func TestValidateCard(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.PaymentDetails)
	}{
		{"missing name", func(c *domain.PaymentDetails) { c.NameOnCard = " " }},
		{"missing number", func(c *domain.PaymentDetails) { c.CardNumber = "" }},
		{"missing expiry", func(c *domain.PaymentDetails) { c.ExpiryDate = "" }},
		{"missing cvv", func(c *domain.PaymentDetails) { c.CVV = "\t" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := validCard()
			tt.mutate(&card)
			assert.ErrorIs(t, ValidateCard(card), ErrInvalidCard)
		})
	}

	assert.NoError(t, ValidateCard(validCard()))
	assert.NoError(t, ValidateCard(domain.PaymentDetails{
		CardNumber: "4242",
		ExpiryDate: "whenever",
		CVV:        "12",
		NameOnCard: "A",
	}))
}

type flakyGateway struct {
	err   error
	calls int
}

func (f *flakyGateway) Charge(context.Context, Charge) (Receipt, error) {
	f.calls++
	return Receipt{}, f.err
}

func TestBreakerGateway_OpensAfterFailures(t *testing.T) {
	down := &flakyGateway{err: errors.New("connection reset")}
	gw := NewBreakerGateway(down, 3, time.Minute)

	for i := 0; i < 3; i++ {
		_, err := gw.Charge(context.Background(), Charge{})
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, gw.State())

	_, err := gw.Charge(context.Background(), Charge{})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, down.calls)
}

func TestBreakerGateway_DeclinesDoNotTrip(t *testing.T) {
	declining := &flakyGateway{err: ErrDeclined}
	gw := NewBreakerGateway(declining, 2, time.Minute)

	for i := 0; i < 5; i++ {
		_, err := gw.Charge(context.Background(), Charge{})
		assert.ErrorIs(t, err, ErrDeclined)
	}
	assert.Equal(t, gobreaker.StateClosed, gw.State())
}

func TestBreakerGateway_PassesThrough(t *testing.T) {
	gw := NewBreakerGateway(StubGateway{}, 3, time.Minute)

	r, err := gw.Charge(context.Background(), Charge{CheckoutID: "c", Card: validCard()})
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, r.Status)
}
