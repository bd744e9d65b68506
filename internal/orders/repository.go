// Package orders stores placed orders and their fulfilment status.
package orders

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fjod/storefront/internal/domain"
)

type Repository interface {
	// Create assigns the next ORD-NNN id and stores the order. An order
	// already carrying an ORD-NNN id keeps it.
	Create(ctx context.Context, o *domain.Order) error
	Get(ctx context.Context, id string) (domain.Order, error)
	// List returns all orders, newest first.
	List(ctx context.Context) ([]domain.Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error)
	// UpdateStatus sets any valid status. A non-empty tracking number
	// replaces the stored one.
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, tracking string) (domain.Order, error)
	Close() error
}

const idPrefix = "ORD-"

func FormatID(n int64) string {
	return fmt.Sprintf("%s%03d", idPrefix, n)
}

// parseID returns the sequence number of an ORD-NNN id, or 0.
func parseID(id string) int64 {
	n, err := strconv.ParseInt(strings.TrimPrefix(id, idPrefix), 10, 64)
	if err != nil || !strings.HasPrefix(id, idPrefix) {
		return 0
	}
	return n
}
