// Package events carries order notifications out of the storefront through
// an outbox drained by a poller.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

const TypeOrderPlaced = "order.placed"

type Event struct {
	ID          int64           `json:"id"`
	AggregateID string          `json:"aggregate_id"`
	Type        string          `json:"event_type"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
}

type OrderPlaced struct {
	OrderID       string             `json:"order_id"`
	CustomerID    string             `json:"customer_id,omitempty"`
	CustomerEmail string             `json:"customer_email"`
	Items         []domain.OrderItem `json:"items"`
	Total         decimal.Decimal    `json:"total"`
	Currency      string             `json:"currency"`
	PlacedAt      time.Time          `json:"placed_at"`
}

func NewOrderPlaced(o domain.Order) (Event, error) {
	payload, err := json.Marshal(OrderPlaced{
		OrderID:       o.ID,
		CustomerID:    o.CustomerID,
		CustomerEmail: o.CustomerEmail,
		Items:         o.Items,
		Total:         o.Total,
		Currency:      o.Currency,
		PlacedAt:      o.OrderDate,
	})
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal order payload: %w", err)
	}
	return Event{
		AggregateID: o.ID,
		Type:        TypeOrderPlaced,
		Payload:     payload,
		CreatedAt:   time.Now().UTC(),
	}, nil
}
