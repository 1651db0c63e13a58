package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the application collectors. A nil *Metrics is valid and
// records nothing, which keeps services usable in tests without a registry.
type Metrics struct {
	httpRequests        *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
	ordersCreated       prometheus.Counter
	paymentsConfirmed   *prometheus.CounterVec
	paymentDuplicates   *prometheus.CounterVec
	notifications       *prometheus.CounterVec
	inventoryShortfalls prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders persisted.",
		}),
		paymentsConfirmed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payments_confirmed_total",
			Help: "Orders moved to paid, by source.",
		}, []string{"source"}),
		paymentDuplicates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_confirm_duplicates_total",
			Help: "Payment confirmations that found the order already settled.",
		}, []string{"source"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notification attempts by kind and outcome.",
		}, []string{"kind", "outcome"}),
		inventoryShortfalls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inventory_shortfall_total",
			Help: "Paid order lines whose stock could not be decremented.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.httpRequests,
			m.httpDuration,
			m.ordersCreated,
			m.paymentsConfirmed,
			m.paymentDuplicates,
			m.notifications,
			m.inventoryShortfalls,
		)
	}
	return m
}

func (m *Metrics) ObserveHTTP(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(seconds)
}

func (m *Metrics) OrderCreated() {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
}

func (m *Metrics) PaymentConfirmed(source string) {
	if m == nil {
		return
	}
	m.paymentsConfirmed.WithLabelValues(source).Inc()
}

func (m *Metrics) PaymentDuplicate(source string) {
	if m == nil {
		return
	}
	m.paymentDuplicates.WithLabelValues(source).Inc()
}

func (m *Metrics) Notification(kind, outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) InventoryShortfall() {
	if m == nil {
		return
	}
	m.inventoryShortfalls.Inc()
}
