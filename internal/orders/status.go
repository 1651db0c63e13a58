package orders

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"storefront/internal/apperror"
	"storefront/internal/events"
	"storefront/internal/models"
	"storefront/internal/notify"
	"storefront/internal/store"
)

// UpdateStatus is the admin fulfilment transition. Shipped, delivered and
// cancelled changes email the customer.
func (s *Service) UpdateStatus(ctx context.Context, id primitive.ObjectID, status, trackingNumber string) (models.Order, error) {
	if !models.ValidOrderStatus(status) {
		return models.Order{}, apperror.Validation("Invalid status").With("status", status)
	}

	order, err := s.orders.UpdateStatus(ctx, id, models.StatusUpdate{
		Status:         status,
		TrackingNumber: strings.TrimSpace(trackingNumber),
		At:             s.now(),
	})
	if errors.Is(err, store.ErrNotFound) {
		return models.Order{}, apperror.NotFound(msgOrderNotFound)
	}
	if err != nil {
		return models.Order{}, apperror.Internal("db error", err)
	}

	s.logger.Info("order status updated",
		zap.String("order_id", order.ID.Hex()),
		zap.String("status", status),
	)
	if notify.NotifiesOn(status) {
		s.sendEmail(ctx, emailStatus, order)
	}
	s.publish(ctx, events.OrderStatusUpdated, order)
	return order, nil
}

// Cancel deletes the caller's order while it is unpaid and not yet shipped.
func (s *Service) Cancel(ctx context.Context, caller models.User, id primitive.ObjectID) error {
	order, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if order.CustomerID != caller.ID {
		return apperror.Forbidden("Not authorized to cancel this order")
	}
	if order.PaymentStatus == models.PaymentStatusPaid {
		return apperror.Validation("Cannot cancel a paid order. Please contact support for a refund.")
	}
	if order.Status == models.OrderStatusShipped || order.Status == models.OrderStatusDelivered {
		return apperror.Validation("Cannot cancel an order that has already been shipped or delivered")
	}

	deleted, err := s.orders.DeleteUnpaid(ctx, id)
	if err != nil {
		return apperror.Internal("db error", err)
	}
	if !deleted {
		return apperror.Conflict("Order can no longer be cancelled")
	}

	now := s.now()
	order.Status = models.OrderStatusCancelled
	order.CancelledAt = &now
	s.logger.Info("order cancelled", zap.String("order_id", order.ID.Hex()))
	s.publish(ctx, events.OrderCancelled, order)
	return nil
}
