package services

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	awspkg "github.com/shopswift/storefront/pkg/aws"
	"github.com/shopswift/storefront/services/order-service/models"
)

// BusinessRecorder is the part of the CloudWatch client used for order
// counters.
type BusinessRecorder interface {
	IsEnabled() bool
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
	RecordValue(ctx context.Context, metricName string, value float64, dimensions map[string]string) error
}

// OrderMetrics counts lifecycle transitions in Prometheus and, when enabled,
// CloudWatch.
type OrderMetrics struct {
	transitions *prometheus.CounterVec
	orderValue  prometheus.Histogram
	cloud       BusinessRecorder
	dimensions  map[string]string
}

func NewOrderMetrics(reg prometheus.Registerer, cloud BusinessRecorder, serviceName string) *OrderMetrics {
	m := &OrderMetrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_transitions_total",
			Help: "Order lifecycle transitions by event type",
		}, []string{"event"}),
		orderValue: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "orders_total_price",
			Help:    "Total price of created orders",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500},
		}),
		cloud:      cloud,
		dimensions: map[string]string{"Service": serviceName},
	}
	reg.MustRegister(m.transitions, m.orderValue)
	return m
}

func (m *OrderMetrics) created(ctx context.Context, o *models.Order) {
	if m == nil {
		return
	}
	value := o.TotalPrice.InexactFloat64()
	m.transitions.WithLabelValues(models.EventOrderCreated).Inc()
	m.orderValue.Observe(value)
	m.record(ctx, func(ctx context.Context) {
		_ = m.cloud.RecordCount(ctx, awspkg.MetricOrdersCreated, m.dimensions)
		_ = m.cloud.RecordValue(ctx, awspkg.MetricOrderValue, value, m.dimensions)
	})
}

func (m *OrderMetrics) paid(ctx context.Context) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(models.EventOrderPaid).Inc()
	m.record(ctx, func(ctx context.Context) {
		_ = m.cloud.RecordCount(ctx, awspkg.MetricOrdersPaid, m.dimensions)
	})
}

func (m *OrderMetrics) delivered(ctx context.Context) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(models.EventOrderDelivered).Inc()
	m.record(ctx, func(ctx context.Context) {
		_ = m.cloud.RecordCount(ctx, awspkg.MetricOrdersDelivered, m.dimensions)
	})
}

// record runs CloudWatch puts off the request path.
func (m *OrderMetrics) record(ctx context.Context, fn func(context.Context)) {
	if m.cloud == nil || !m.cloud.IsEnabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		fn(ctx)
	}()
}
