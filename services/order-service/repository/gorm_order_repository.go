package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopswift/storefront/services/order-service/models"
)

var lifecycleColumns = []string{"is_paid", "paid_at", "payment_result", "is_delivered", "delivered_at", "version", "updated_at"}

// GormOrderRepository implements OrderRepository using GORM
type GormOrderRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormOrderRepository creates a new instance of GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db, now: time.Now}
}

func (r *GormOrderRepository) Create(ctx context.Context, order *models.Order) error {
	now := r.now().UTC()
	order.ID = uuid.NewString()
	order.Version = 1
	order.CreatedAt = now
	order.UpdatedAt = now

	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	return &order, nil
}

func (r *GormOrderRepository) FindByUser(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	return orders, nil
}

func (r *GormOrderRepository) FindAll(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	return orders, nil
}

func (r *GormOrderRepository) UpdateLifecycle(ctx context.Context, order *models.Order) error {
	next := models.Order{
		IsPaid:        order.IsPaid,
		PaidAt:        order.PaidAt,
		PaymentResult: order.PaymentResult,
		IsDelivered:   order.IsDelivered,
		DeliveredAt:   order.DeliveredAt,
		Version:       order.Version + 1,
		UpdatedAt:     r.now().UTC(),
	}

	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND version = ?", order.ID, order.Version).
		Select(lifecycleColumns).
		Updates(&next)
	if res.Error != nil {
		return fmt.Errorf("update order: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", order.ID).Count(&n).Error; err != nil {
			return fmt.Errorf("check order: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}

	order.Version = next.Version
	order.UpdatedAt = next.UpdatedAt
	return nil
}

func (r *GormOrderRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Order{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}

func (r *GormOrderRepository) SumTotalPrice(ctx context.Context) (models.Money, error) {
	var total decimal.Decimal
	row := r.db.WithContext(ctx).Model(&models.Order{}).Select("COALESCE(SUM(total_price), 0)").Row()
	if err := row.Scan(&total); err != nil {
		return models.Money{}, fmt.Errorf("sum orders: %w", err)
	}
	return models.NewMoney(total), nil
}

func (r *GormOrderRepository) SalesByPaidDate(ctx context.Context) ([]models.DailySales, error) {
	rows, err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("to_char(paid_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, SUM(total_price) AS total_sales").
		Where("is_paid = ?", true).
		Group("day").
		Order("day").
		Rows()
	if err != nil {
		return nil, fmt.Errorf("aggregate sales: %w", err)
	}
	defer rows.Close()

	out := []models.DailySales{}
	for rows.Next() {
		var (
			day   string
			total decimal.Decimal
		)
		if err := rows.Scan(&day, &total); err != nil {
			return nil, fmt.Errorf("decode sales: %w", err)
		}
		out = append(out, models.DailySales{Date: day, TotalSales: models.NewMoney(total)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("decode sales: %w", err)
	}
	return out, nil
}
