package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/shopswift/storefront/services/common/users"
	"github.com/shopswift/storefront/services/order-service/models"
	"github.com/shopswift/storefront/services/order-service/repository"
)

type memOrders struct {
	mu      sync.Mutex
	seq     int
	orders  map[string]models.Order
	creates int
	failOn  error
	// conflictOnce makes the next lifecycle update lose a race.
	conflictOnce bool
}

func newMemOrders() *memOrders {
	return &memOrders{orders: map[string]models.Order{}}
}

func (m *memOrders) Create(_ context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn != nil {
		return m.failOn
	}
	m.seq++
	m.creates++
	o.ID = fmt.Sprintf("order-%d", m.seq)
	o.Version = 1
	m.orders[o.ID] = clone(*o)
	return nil
}

func (m *memOrders) FindByID(_ context.Context, id string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := clone(o)
	return &c, nil
}

func (m *memOrders) FindByUser(_ context.Context, userID string) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		if o.User == userID {
			out = append(out, clone(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memOrders) FindAll(_ context.Context) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, clone(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memOrders) UpdateLifecycle(_ context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.orders[o.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if m.conflictOnce {
		m.conflictOnce = false
		stored.Version++
		m.orders[o.ID] = stored
	}
	if stored.Version != o.Version {
		return repository.ErrVersionConflict
	}
	stored.IsPaid, stored.PaidAt, stored.PaymentResult = o.IsPaid, o.PaidAt, o.PaymentResult
	stored.IsDelivered, stored.DeliveredAt = o.IsDelivered, o.DeliveredAt
	stored.Version++
	m.orders[o.ID] = stored
	o.Version = stored.Version
	return nil
}

func (m *memOrders) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.orders)), nil
}

func (m *memOrders) SumTotalPrice(_ context.Context) (models.Money, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := decimal.Zero
	for _, o := range m.orders {
		sum = sum.Add(o.TotalPrice.Decimal)
	}
	return models.NewMoney(sum), nil
}

func (m *memOrders) SalesByPaidDate(_ context.Context) ([]models.DailySales, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byDay := map[string]decimal.Decimal{}
	for _, o := range m.orders {
		if !o.IsPaid || o.PaidAt == nil {
			continue
		}
		day := o.PaidAt.UTC().Format("2006-01-02")
		byDay[day] = byDay[day].Add(o.TotalPrice.Decimal)
	}
	out := make([]models.DailySales, 0, len(byDay))
	for day, total := range byDay {
		out = append(out, models.DailySales{Date: day, TotalSales: models.NewMoney(total)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func clone(o models.Order) models.Order {
	o.OrderItems = append([]models.OrderItem(nil), o.OrderItems...)
	if o.PaymentResult != nil {
		pr := *o.PaymentResult
		o.PaymentResult = &pr
	}
	return o
}

type memCatalog struct {
	products map[string]models.CatalogProduct
	calls    int
	err      error
}

func (c *memCatalog) Resolve(_ context.Context, ids []string) (map[string]models.CatalogProduct, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	out := map[string]models.CatalogProduct{}
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type memUsers map[string]users.User

func (m memUsers) FindByIDs(_ context.Context, ids []string) (map[string]users.User, error) {
	out := map[string]users.User{}
	for _, id := range ids {
		if u, ok := m[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	topics   []string
	messages [][]byte
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, message []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.messages = append(p.messages, message)
	return nil
}

var errStoreDown = errors.New("connection refused")
