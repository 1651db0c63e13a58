// Package events publishes order lifecycle events for downstream consumers.
package events

import (
	"context"
	"time"

	"storefront/internal/models"
)

const (
	OrderCreated       = "order.created"
	OrderPaid          = "order.paid"
	OrderPaymentFailed = "order.payment_failed"
	OrderStatusUpdated = "order.status_updated"
	OrderCancelled     = "order.cancelled"
)

type OrderEvent struct {
	Type          string    `json:"type"`
	OrderID       string    `json:"orderId"`
	OrderNumber   string    `json:"orderNumber"`
	CustomerID    string    `json:"customerId"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"paymentStatus"`
	Total         float64   `json:"total"`
	At            time.Time `json:"at"`
}

func NewOrderEvent(eventType string, order models.Order, at time.Time) OrderEvent {
	return OrderEvent{
		Type:          eventType,
		OrderID:       order.ID.Hex(),
		OrderNumber:   order.OrderNumber,
		CustomerID:    order.CustomerID.Hex(),
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		Total:         order.Total,
		At:            at.UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
	Close() error
}

// Nop drops events when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, OrderEvent) error { return nil }
func (Nop) Close() error                              { return nil }
