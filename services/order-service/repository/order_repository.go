package repository

import (
	"context"
	"errors"

	"github.com/shopswift/storefront/services/order-service/models"
)

var (
	ErrNotFound        = errors.New("order not found")
	ErrVersionConflict = errors.New("order was modified concurrently")
)

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	// Create assigns ID, Version, CreatedAt and UpdatedAt.
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id string) (*models.Order, error)
	// FindByUser returns the user's orders, newest first.
	FindByUser(ctx context.Context, userID string) ([]models.Order, error)
	FindAll(ctx context.Context) ([]models.Order, error)
	// UpdateLifecycle persists payment and delivery fields if the stored
	// version still equals order.Version, then bumps it. Pricing fields are
	// never written.
	UpdateLifecycle(ctx context.Context, order *models.Order) error
	Count(ctx context.Context) (int64, error)
	SumTotalPrice(ctx context.Context) (models.Money, error)
	SalesByPaidDate(ctx context.Context) ([]models.DailySales, error)
}
