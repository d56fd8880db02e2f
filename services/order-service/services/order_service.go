package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/shopswift/storefront/services/common/errors"
	"github.com/shopswift/storefront/services/common/identity"
	"github.com/shopswift/storefront/services/common/users"
	"github.com/shopswift/storefront/services/order-service/models"
	"github.com/shopswift/storefront/services/order-service/repository"
)

const (
	msgNoOrderItems    = "No order items"
	msgProductNotFound = "Product not found: "
	msgInvalidQty      = "Quantity must be at least 1 for product: "
	msgOrderNotFound   = "Order not found"
	msgNotAdmin        = "Not authorized as an admin"
	msgOrderConflict   = "Order was modified by another request, reload and retry"
)

// CatalogLookup resolves product ids to their current catalog entry. Unknown
// ids are absent from the result.
type CatalogLookup interface {
	Resolve(ctx context.Context, ids []string) (map[string]models.CatalogProduct, error)
}

// UserDirectory resolves order owners.
type UserDirectory interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]users.User, error)
}

// OrderService is the order lifecycle and query surface used by the HTTP layer.
type OrderService interface {
	CreateOrder(ctx context.Context, actor identity.Identity, req models.CreateOrderRequest) (*models.Order, error)
	MarkPaid(ctx context.Context, actor identity.Identity, orderID string, req models.PayOrderRequest) (*models.Order, error)
	MarkDelivered(ctx context.Context, actor identity.Identity, orderID string) (*models.Order, error)

	GetByID(ctx context.Context, orderID string) (*models.OrderView, error)
	ListMine(ctx context.Context, actor identity.Identity) ([]models.Order, error)
	ListAll(ctx context.Context, actor identity.Identity) ([]models.OrderView, error)
	CountAll(ctx context.Context) (*models.TotalOrdersResponse, error)
	TotalSales(ctx context.Context) (*models.TotalSalesResponse, error)
	SalesByDate(ctx context.Context) ([]models.DailySales, error)
}

type orderService struct {
	orders   repository.OrderRepository
	catalog  CatalogLookup
	owners   UserDirectory
	notifier *EventNotifier
	metrics  *OrderMetrics
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*orderService)

// WithNotifier publishes lifecycle events after each successful transition.
func WithNotifier(n *EventNotifier) Option {
	return func(s *orderService) { s.notifier = n }
}

func WithMetrics(m *OrderMetrics) Option {
	return func(s *orderService) { s.metrics = m }
}

// WithClock overrides the source of PaidAt and DeliveredAt.
func WithClock(now func() time.Time) Option {
	return func(s *orderService) { s.now = now }
}

func NewOrderService(orders repository.OrderRepository, catalog CatalogLookup, owners UserDirectory, logger *zap.Logger, opts ...Option) OrderService {
	s := &orderService{
		orders:  orders,
		catalog: catalog,
		owners:  owners,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrder validates the requested lines against the catalog, snapshots
// catalog prices, computes totals and persists the order in one write. Client
// supplied prices are ignored.
func (s *orderService) CreateOrder(ctx context.Context, actor identity.Identity, req models.CreateOrderRequest) (*models.Order, error) {
	if len(req.OrderItems) == 0 {
		return nil, apperrors.Validation(msgNoOrderItems)
	}

	ids := make([]string, 0, len(req.OrderItems))
	for _, it := range req.OrderItems {
		if it.Qty < 1 {
			return nil, apperrors.Validation(msgInvalidQty + it.Product)
		}
		ids = append(ids, it.Product)
	}
	products, err := s.catalog.Resolve(ctx, ids)
	if err != nil {
		return nil, apperrors.Store("Failed to load products", err)
	}

	items := make([]models.OrderItem, 0, len(req.OrderItems))
	for _, it := range req.OrderItems {
		p, ok := products[it.Product]
		if !ok {
			return nil, apperrors.NotFound(msgProductNotFound + it.Product)
		}
		items = append(items, models.OrderItem{
			Product: it.Product,
			Name:    p.Name,
			Image:   p.Image,
			Qty:     it.Qty,
			Price:   p.Price,
		})
	}

	order := &models.Order{
		User:            actor.ID,
		OrderItems:      items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
	}
	order.ApplyTotals(CalcPrices(items))

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, apperrors.Store("Failed to create order", err)
	}

	s.logger.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("user_id", actor.ID),
		zap.String("total_price", order.TotalPrice.String()),
	)
	s.metrics.created(ctx, order)
	s.notifier.Notify(ctx, models.NewOrderEvent(models.EventOrderCreated, order, order.CreatedAt))
	return order, nil
}

// MarkPaid records a payment confirmation. Any authenticated caller may pay
// any order, and paying again overwrites the previous confirmation.
func (s *orderService) MarkPaid(ctx context.Context, actor identity.Identity, orderID string, req models.PayOrderRequest) (*models.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}

	paidAt := s.now().UTC()
	order.IsPaid = true
	order.PaidAt = &paidAt
	order.PaymentResult = &models.PaymentResult{
		ID:           req.ID,
		Status:       req.Status,
		UpdateTime:   req.UpdateTime,
		EmailAddress: req.Payer.EmailAddress,
	}

	if err := s.save(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info("order paid",
		zap.String("order_id", order.ID),
		zap.String("paid_by", actor.ID),
		zap.String("payment_id", req.ID),
	)
	s.metrics.paid(ctx)
	s.notifier.Notify(ctx, models.NewOrderEvent(models.EventOrderPaid, order, paidAt))
	return order, nil
}

// MarkDelivered is admin only. Payment is not a precondition.
func (s *orderService) MarkDelivered(ctx context.Context, actor identity.Identity, orderID string) (*models.Order, error) {
	if !actor.IsAdmin {
		return nil, apperrors.Forbidden(msgNotAdmin)
	}

	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}

	deliveredAt := s.now().UTC()
	order.IsDelivered = true
	order.DeliveredAt = &deliveredAt

	if err := s.save(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info("order delivered", zap.String("order_id", order.ID), zap.String("admin_id", actor.ID))
	s.metrics.delivered(ctx)
	s.notifier.Notify(ctx, models.NewOrderEvent(models.EventOrderDelivered, order, deliveredAt))
	return order, nil
}

func (s *orderService) GetByID(ctx context.Context, orderID string) (*models.OrderView, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	views, err := s.withOwners(ctx, []models.Order{*order}, true)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *orderService) ListMine(ctx context.Context, actor identity.Identity) ([]models.Order, error) {
	orders, err := s.orders.FindByUser(ctx, actor.ID)
	if err != nil {
		return nil, apperrors.Store("Failed to fetch orders", err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

func (s *orderService) ListAll(ctx context.Context, actor identity.Identity) ([]models.OrderView, error) {
	if !actor.IsAdmin {
		return nil, apperrors.Forbidden(msgNotAdmin)
	}
	orders, err := s.orders.FindAll(ctx)
	if err != nil {
		return nil, apperrors.Store("Failed to fetch orders", err)
	}
	return s.withOwners(ctx, orders, false)
}

func (s *orderService) CountAll(ctx context.Context) (*models.TotalOrdersResponse, error) {
	n, err := s.orders.Count(ctx)
	if err != nil {
		return nil, apperrors.Store("Failed to count orders", err)
	}
	return &models.TotalOrdersResponse{TotalOrders: n}, nil
}

// TotalSales sums totalPrice over every order, paid or not.
func (s *orderService) TotalSales(ctx context.Context) (*models.TotalSalesResponse, error) {
	total, err := s.orders.SumTotalPrice(ctx)
	if err != nil {
		return nil, apperrors.Store("Failed to calculate total sales", err)
	}
	return &models.TotalSalesResponse{TotalSales: total}, nil
}

// SalesByDate groups paid orders by the UTC date of paidAt.
func (s *orderService) SalesByDate(ctx context.Context) ([]models.DailySales, error) {
	sales, err := s.orders.SalesByPaidDate(ctx)
	if err != nil {
		return nil, apperrors.Store("Failed to calculate sales by date", err)
	}
	if sales == nil {
		sales = []models.DailySales{}
	}
	return sales, nil
}

func (s *orderService) load(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound(msgOrderNotFound)
		}
		return nil, apperrors.Store("Failed to fetch order", err)
	}
	return order, nil
}

func (s *orderService) save(ctx context.Context, order *models.Order) error {
	err := s.orders.UpdateLifecycle(ctx, order)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFound(msgOrderNotFound)
	case errors.Is(err, repository.ErrVersionConflict):
		s.logger.Warn("order update lost a race", zap.String("order_id", order.ID), zap.Int64("version", order.Version))
		return apperrors.New(apperrors.KindConflict, msgOrderConflict, err)
	default:
		return apperrors.Store("Failed to update order", err)
	}
}

// withOwners attaches owner summaries. Owners that no longer exist are
// rendered with their id only.
func (s *orderService) withOwners(ctx context.Context, orders []models.Order, withEmail bool) ([]models.OrderView, error) {
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.User)
	}
	owners, err := s.owners.FindByIDs(ctx, ids)
	if err != nil {
		return nil, apperrors.Store("Failed to fetch order owners", err)
	}

	views := make([]models.OrderView, 0, len(orders))
	for _, o := range orders {
		summary := users.Summary{ID: o.User}
		if u, ok := owners[o.User]; ok {
			summary = u.Summary()
			if !withEmail {
				summary.Email = ""
			}
		}
		views = append(views, models.OrderView{Order: o, User: summary})
	}
	return views, nil
}
