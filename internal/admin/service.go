// Package admin is the back office: product maintenance, order status and
// sales figures.
package admin

import (
	"context"

	"github.com/fjod/storefront/internal/catalog"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/logger"
	"github.com/fjod/storefront/internal/orders"
	"github.com/shopspring/decimal"
)

const DefaultLowStockThreshold = 5

type Service struct {
	products          catalog.Store
	orders            orders.Repository
	lowStockThreshold int
}

func NewService(products catalog.Store, orderRepo orders.Repository, lowStockThreshold int) *Service {
	if lowStockThreshold <= 0 {
		lowStockThreshold = DefaultLowStockThreshold
	}
	return &Service{products: products, orders: orderRepo, lowStockThreshold: lowStockThreshold}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.products.List(ctx)
}

func (s *Service) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	created, err := s.products.Create(ctx, p)
	if err != nil {
		return domain.Product{}, err
	}
	logger.FromContext(ctx).Info("product created", "product_id", created.ID)
	return created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, patch domain.ProductPatch) (domain.Product, error) {
	return s.products.Update(ctx, id, patch)
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("product deleted", "product_id", id)
	return nil
}

func (s *Service) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return s.orders.List(ctx)
}

// UpdateOrderStatus sets any status on an order. Moving backwards, for
// example shipped to pending, is allowed.
func (s *Service) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus, tracking string) (domain.Order, error) {
	o, err := s.orders.UpdateStatus(ctx, id, status, tracking)
	if err != nil {
		return domain.Order{}, err
	}
	logger.FromContext(ctx).Info("order status updated", "order_id", id, "status", status)
	return o, nil
}

type Analytics struct {
	TotalSales        decimal.Decimal            `json:"total_sales"`
	TotalOrders       int                        `json:"total_orders"`
	PendingOrders     int                        `json:"pending_orders"`
	OrdersByStatus    map[domain.OrderStatus]int `json:"orders_by_status"`
	LowStockProducts  []domain.Product           `json:"low_stock_products"`
	AverageOrderValue decimal.Decimal            `json:"average_order_value"`
}

// Analytics recomputes the dashboard figures from the current orders and
// products.
func (s *Service) Analytics(ctx context.Context) (Analytics, error) {
	allOrders, err := s.orders.List(ctx)
	if err != nil {
		return Analytics{}, err
	}
	products, err := s.products.List(ctx)
	if err != nil {
		return Analytics{}, err
	}
	return Compute(allOrders, products, s.lowStockThreshold), nil
}

// Compute derives Analytics from orders and products.
func Compute(allOrders []domain.Order, products []domain.Product, lowStockThreshold int) Analytics {
	a := Analytics{
		TotalSales:        decimal.Zero,
		TotalOrders:       len(allOrders),
		OrdersByStatus:    make(map[domain.OrderStatus]int, len(domain.OrderStatuses)),
		LowStockProducts:  []domain.Product{},
		AverageOrderValue: decimal.Zero,
	}
	for _, o := range allOrders {
		a.TotalSales = a.TotalSales.Add(o.Total)
		a.OrdersByStatus[o.Status]++
		if o.Status == domain.OrderStatusPending {
			a.PendingOrders++
		}
	}
	for _, p := range products {
		if p.LowStock(lowStockThreshold) {
			a.LowStockProducts = append(a.LowStockProducts, p)
		}
	}
	if a.TotalOrders > 0 {
		a.AverageOrderValue = a.TotalSales.Div(decimal.NewFromInt(int64(a.TotalOrders))).Round(2)
	}
	return a
}
