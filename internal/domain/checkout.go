package domain

import (
	"strings"
	"time"
)

type CheckoutStep string

const (
	StepAuth     CheckoutStep = "auth"
	StepShipping CheckoutStep = "shipping"
	StepPayment  CheckoutStep = "payment"
	StepComplete CheckoutStep = "complete"
)

// Rank orders the steps; a session only ever moves to a higher rank.
func (s CheckoutStep) Rank() int {
	switch s {
	case StepAuth:
		return 0
	case StepShipping:
		return 1
	case StepPayment:
		return 2
	case StepComplete:
		return 3
	default:
		return -1
	}
}

// CanTransitionTo allows exactly one step forward.
func (s CheckoutStep) CanTransitionTo(next CheckoutStep) bool {
	return s.Rank() >= 0 && next.Rank() == s.Rank()+1
}

func (s CheckoutStep) IsTerminal() bool {
	return s == StepComplete
}

type AuthMode string

const (
	AuthLogin    AuthMode = "login"
	AuthRegister AuthMode = "register"
	AuthGuest    AuthMode = "guest"
)

type ShippingAddress struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postal_code"`
}

// Line renders the address on one line, skipping empty parts.
func (a ShippingAddress) Line() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Address, a.City, strings.TrimSpace(a.Province + " " + a.PostalCode)} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// FullName joins first and last name.
func (a ShippingAddress) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// PaymentDetails is passed to the gateway and never stored.
type PaymentDetails struct {
	CardNumber string `json:"card_number"`
	ExpiryDate string `json:"expiry_date"`
	CVV        string `json:"cvv"`
	NameOnCard string `json:"name_on_card"`
}

type CheckoutSession struct {
	ID        string           `json:"id"`
	OwnerID   string           `json:"owner_id"`
	UserID    string           `json:"user_id,omitempty"`
	Step      CheckoutStep     `json:"step"`
	AuthMode  AuthMode         `json:"auth_mode,omitempty"`
	Shipping  *ShippingAddress `json:"shipping,omitempty"`
	OrderID   string           `json:"order_id,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}
