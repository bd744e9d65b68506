package admin

import (
	"context"
	"testing"

	"github.com/fjod/storefront/internal/catalog"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/orders"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*Service, *catalog.MemoryStore) {
	t.Helper()
	products := catalog.NewMemoryStore(catalog.DemoProducts()...)
	orderRepo := orders.NewMemoryRepository(orders.DemoOrders("demo")...)
	return NewService(products, orderRepo, 0), products
}

func TestCreateProduct_NextID(t *testing.T) {
	svc, _ := setup(t)

	p, err := svc.CreateProduct(context.Background(), domain.Product{
		Name:     "Gold Foil Card",
		Price:    decimal.RequireFromString("49.99"),
		Category: "stationery",
		Stock:    100,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(9), p.ID)
}

func TestCreateProduct_Validation(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, domain.Product{Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, catalog.ErrInvalidProduct)

	_, err = svc.CreateProduct(ctx, domain.Product{Name: "x", Price: decimal.NewFromInt(1), Stock: -1})
	assert.ErrorIs(t, err, catalog.ErrInvalidProduct)
}

func TestDeleteProduct_RemovesExactlyOne(t *testing.T) {
	svc, products := setup(t)
	ctx := context.Background()

	require.NoError(t, svc.DeleteProduct(ctx, 2))

	remaining, err := products.List(ctx)
	require.NoError(t, err)
	assert.Len(t, remaining, 7)
	for _, p := range remaining {
		assert.NotEqual(t, int64(2), p.ID)
	}

	assert.ErrorIs(t, svc.DeleteProduct(ctx, 2), catalog.ErrProductNotFound)
}

func TestUpdateOrderStatus_FreeTransitions(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	o, err := svc.UpdateOrderStatus(ctx, "ORD-001", domain.OrderStatusShipped, "TRK-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusShipped, o.Status)

	o, err = svc.UpdateOrderStatus(ctx, "ORD-001", domain.OrderStatusPending, "")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, o.Status)
	assert.Equal(t, "TRK-1", o.TrackingNumber)

	_, err = svc.UpdateOrderStatus(ctx, "ORD-001", "teleported", "")
	assert.ErrorIs(t, err, orders.ErrInvalidStatus)
}

func TestAnalytics(t *testing.T) {
	svc, products := setup(t)
	ctx := context.Background()

	a, err := svc.Analytics(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1199.96", a.TotalSales.String())
	assert.Equal(t, 2, a.TotalOrders)
	assert.Equal(t, 1, a.PendingOrders)
	assert.Equal(t, 1, a.OrdersByStatus[domain.OrderStatusFulfilled])
	assert.Equal(t, "599.98", a.AverageOrderValue.String())
	assert.Empty(t, a.LowStockProducts)

	stock := 4
	_, err = products.Update(ctx, 5, domain.ProductPatch{Stock: &stock})
	require.NoError(t, err)

	a, err = svc.Analytics(ctx)
	require.NoError(t, err)
	require.Len(t, a.LowStockProducts, 1)
	assert.Equal(t, int64(5), a.LowStockProducts[0].ID)
}

func TestCompute_NoOrders(t *testing.T) {
	a := Compute(nil, nil, 5)
	assert.True(t, a.AverageOrderValue.IsZero())
	assert.True(t, a.TotalSales.IsZero())
	assert.Zero(t, a.TotalOrders)
}

func TestCompute_AverageRounds(t *testing.T) {
	orders := []domain.Order{
		{Total: decimal.NewFromInt(10), Status: domain.OrderStatusPending},
		{Total: decimal.NewFromInt(10), Status: domain.OrderStatusShipped},
		{Total: decimal.NewFromInt(11), Status: domain.OrderStatusCancelled},
	}
	a := Compute(orders, nil, 5)
	assert.Equal(t, "10.33", a.AverageOrderValue.String())
	assert.Equal(t, 1, a.PendingOrders)
}
