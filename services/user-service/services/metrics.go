package services

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	awspkg "github.com/shopswift/storefront/pkg/aws"
)

type CountRecorder interface {
	IsEnabled() bool
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
}

// AccountMetrics counts registrations and failed logins.
type AccountMetrics struct {
	registrations prometheus.Counter
	loginFailures prometheus.Counter
	cloud         CountRecorder
	dimensions    map[string]string
}

func NewAccountMetrics(reg prometheus.Registerer, cloud CountRecorder, serviceName string) *AccountMetrics {
	m := &AccountMetrics{
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "users_registered_total",
			Help: "Accounts created",
		}),
		loginFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "users_login_failures_total",
			Help: "Rejected sign-in attempts",
		}),
		cloud:      cloud,
		dimensions: map[string]string{"Service": serviceName},
	}
	reg.MustRegister(m.registrations, m.loginFailures)
	return m
}

func (m *AccountMetrics) registered(ctx context.Context) {
	if m == nil {
		return
	}
	m.registrations.Inc()
	m.count(ctx, awspkg.MetricUsersRegistered)
}

func (m *AccountMetrics) loginFailed(ctx context.Context) {
	if m == nil {
		return
	}
	m.loginFailures.Inc()
	m.count(ctx, awspkg.MetricLoginFailed)
}

func (m *AccountMetrics) count(ctx context.Context, name string) {
	if m.cloud == nil || !m.cloud.IsEnabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = m.cloud.RecordCount(ctx, name, m.dimensions)
	}()
}
