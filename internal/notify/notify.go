// Package notify sends transactional order emails.
package notify

import (
	"context"
	"errors"

	"storefront/internal/models"
)

var ErrDisabled = errors.New("email sending disabled")

type Notifier interface {
	SendOrderConfirmation(ctx context.Context, order models.Order, customer models.User) error
	SendOrderStatusUpdate(ctx context.Context, order models.Order, customer models.User) error
}

// Disabled is used when no provider key is configured.
type Disabled struct{}

func (Disabled) SendOrderConfirmation(context.Context, models.Order, models.User) error {
	return ErrDisabled
}

func (Disabled) SendOrderStatusUpdate(context.Context, models.Order, models.User) error {
	return ErrDisabled
}

// NotifiesOn reports whether a status change triggers a customer email.
func NotifiesOn(status string) bool {
	switch status {
	case models.OrderStatusShipped, models.OrderStatusDelivered, models.OrderStatusCancelled:
		return true
	}
	return false
}
