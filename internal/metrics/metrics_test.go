package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.OrderCreated()
	m.PaymentConfirmed("confirm")
	m.PaymentConfirmed("webhook")
	m.PaymentConfirmed("webhook")
	m.ObserveHTTP("GET", "/api/products", "200", 0.01)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ordersCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.paymentsConfirmed.WithLabelValues("webhook")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/products", "200")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.OrderCreated()
		m.PaymentConfirmed("confirm")
		m.PaymentDuplicate("webhook")
		m.Notification("order_confirmation", "sent")
		m.InventoryShortfall()
		m.ObserveHTTP("GET", "/", "200", 1)
	})
}
