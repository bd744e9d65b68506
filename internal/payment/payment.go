// Package payment charges orders. The storefront ships with a stub gateway
// that approves every charge.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/fjod/storefront/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidCard = errors.New("invalid card details")
	ErrDeclined    = errors.New("payment declined")
)

type Status string

const (
	StatusApproved Status = "approved"
	StatusDeclined Status = "declined"
)

type Charge struct {
	CheckoutID string
	Amount     decimal.Decimal
	Currency   string
	Card       domain.PaymentDetails
}

type Receipt struct {
	ID          string          `json:"id"`
	CheckoutID  string          `json:"checkout_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Status      Status          `json:"status"`
	CardLast4   string          `json:"card_last4"`
	ProcessedAt time.Time       `json:"processed_at"`
}

type Gateway interface {
	Charge(ctx context.Context, c Charge) (Receipt, error)
}

// StubGateway approves every charge whose card fields are filled in.
type StubGateway struct{}

func (StubGateway) Charge(ctx context.Context, c Charge) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	if err := ValidateCard(c.Card); err != nil {
		return Receipt{}, err
	}
	return Receipt{
		ID:          "PAY-" + uuid.NewString(),
		CheckoutID:  c.CheckoutID,
		Amount:      c.Amount,
		Currency:    c.Currency,
		Status:      StatusApproved,
		CardLast4:   last4(c.Card.CardNumber),
		ProcessedAt: time.Now().UTC(),
	}, nil
}

// ValidateCard checks that every card field is filled in. The contents
// are not inspected.
func ValidateCard(card domain.PaymentDetails) error {
	required := []struct{ name, value string }{
		{"name on card", card.NameOnCard},
		{"card number", card.CardNumber},
		{"expiry date", card.ExpiryDate},
		{"cvv", card.CVV},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidCard, f.name)
		}
	}
	return nil
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

func last4(number string) string {
	d := digitsOnly(number)
	if len(d) <= 4 {
		return d
	}
	return d[len(d)-4:]
}
