package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

// DemoOrders returns the starter orders: one pending order for the back
// office and one fulfilled order in the demo customer's history.
func DemoOrders(demoCustomerID string) []domain.Order {
	placed := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	items := func() []domain.OrderItem {
		return []domain.OrderItem{{
			ProductID:   1,
			ProductName: "Premium Custom T-Shirt",
			Quantity:    2,
			Price:       decimal.RequireFromString("299.99"),
		}}
	}
	total := decimal.RequireFromString("599.98")

	return []domain.Order{
		{
			ID:              FormatID(1),
			CustomerName:    "Sarah Johnson",
			CustomerEmail:   "sarah@example.com",
			Items:           items(),
			Subtotal:        total,
			Shipping:        decimal.Zero,
			Total:           total,
			Currency:        "ZAR",
			Status:          domain.OrderStatusPending,
			OrderDate:       placed,
			ShippingAddress: "123 Main St, Cape Town, South Africa",
		},
		{
			ID:              FormatID(2),
			CustomerID:      demoCustomerID,
			CustomerName:    "Demo User",
			CustomerEmail:   "demo@example.com",
			Items:           items(),
			Subtotal:        total,
			Shipping:        decimal.Zero,
			Total:           total,
			Currency:        "ZAR",
			Status:          domain.OrderStatusFulfilled,
			OrderDate:       placed,
			ShippingAddress: "1 Demo Road, Johannesburg, 2000",
		},
	}
}

// Seed stores orders into an empty repository, keeping their ids.
func Seed(ctx context.Context, repo Repository, orders []domain.Order) error {
	existing, err := repo.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for i := range orders {
		o := orders[i]
		if err := repo.Create(ctx, &o); err != nil {
			return fmt.Errorf("seed order %s: %w", orders[i].ID, err)
		}
	}
	return nil
}
