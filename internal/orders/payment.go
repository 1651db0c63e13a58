package orders

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"storefront/internal/apperror"
	"storefront/internal/events"
	"storefront/internal/models"
	"storefront/internal/payment"
	"storefront/internal/pricing"
	"storefront/internal/store"
)

const (
	sourceConfirm = "confirm"
	sourceWebhook = "webhook"

	msgGatewayUnavailable = "Payment gateway is not configured"
	msgOrderCancelled     = "Order was cancelled, the payment must be refunded"
)

// ConfirmPayment verifies a payment intent with the gateway and settles the
// order. Confirming an already paid order returns it unchanged.
func (s *Service) ConfirmPayment(ctx context.Context, caller models.User, orderID primitive.ObjectID, reference string) (models.Order, error) {
	ctx, span := s.tracer.Start(ctx, "orders.ConfirmPayment")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID.Hex()))

	order, err := s.find(ctx, orderID)
	if err != nil {
		return models.Order{}, err
	}
	if order.CustomerID != caller.ID {
		return models.Order{}, apperror.Forbidden("Not authorized to access this order")
	}
	if s.gateway == nil {
		return models.Order{}, apperror.Unavailable(msgGatewayUnavailable)
	}

	intentID := payment.NormalizeIntentID(reference)
	if intentID == "" {
		return models.Order{}, apperror.Validation("paymentIntentId is required")
	}
	if order.PaymentStatus == models.PaymentStatusPaid {
		s.metrics.PaymentDuplicate(sourceConfirm)
		return order, nil
	}
	if order.PaymentIntentID != "" && order.PaymentIntentID != intentID {
		return models.Order{}, apperror.Validation("Payment intent does not belong to this order")
	}

	intent, err := s.gateway.RetrieveIntent(ctx, intentID)
	if err != nil {
		s.logger.Warn("payment intent lookup failed",
			zap.String("order_id", order.ID.Hex()),
			zap.String("payment_intent", intentID),
			zap.Error(err),
		)
		return models.Order{}, apperror.Unavailable("Could not verify payment with the gateway")
	}
	if order.PaymentIntentID == "" {
		if owner := intent.Metadata["userId"]; owner != order.CustomerID.Hex() {
			return models.Order{}, apperror.Validation("Payment intent does not belong to this order")
		}
		if err := s.orders.SetPaymentIntent(ctx, order.ID, intent.ID); err != nil {
			return models.Order{}, apperror.Internal("db error", err)
		}
		order.PaymentIntentID = intent.ID
	}
	if intent.Status != payment.StatusSucceeded {
		return models.Order{}, apperror.Validation(fmt.Sprintf("Payment not completed. Status: %s", intent.Status)).
			With("status", intent.Status)
	}
	if intent.Amount != pricing.MinorUnits(order.Total) {
		s.logger.Error("payment amount mismatch",
			zap.String("order_id", order.ID.Hex()),
			zap.Int64("intent_amount", intent.Amount),
			zap.Float64("order_total", order.Total),
		)
		return models.Order{}, apperror.Validation("Payment amount does not match order total")
	}

	return s.applyPaymentSuccess(ctx, order, sourceConfirm)
}

// applyPaymentSuccess moves the order to paid with a conditional write. Only
// the caller whose write lands performs the side effects, so concurrent
// confirm and webhook deliveries settle the order once.
func (s *Service) applyPaymentSuccess(ctx context.Context, order models.Order, source string) (models.Order, error) {
	now := s.now()
	updated, applied, err := s.orders.TransitionPayment(ctx, order.ID,
		models.PaymentStatusPending, models.PaymentStatusPaid, models.OrderStatusProcessing, now)
	if err == nil && !applied && updated.PaymentStatus == models.PaymentStatusFailed {
		// a retried card can succeed after an earlier failure event
		updated, applied, err = s.orders.TransitionPayment(ctx, order.ID,
			models.PaymentStatusFailed, models.PaymentStatusPaid, models.OrderStatusProcessing, now)
	}
	if errors.Is(err, store.ErrNotFound) {
		return models.Order{}, apperror.NotFound(msgOrderNotFound)
	}
	if err != nil {
		return models.Order{}, apperror.Internal("db error", err)
	}
	if !applied && updated.Status == models.OrderStatusCancelled && updated.PaymentStatus != models.PaymentStatusPaid {
		s.logger.Warn("payment received for cancelled order",
			zap.String("order_id", order.ID.Hex()),
			zap.String("payment_intent", order.PaymentIntentID),
			zap.String("source", source),
		)
		return updated, apperror.Conflict(msgOrderCancelled)
	}
	if !applied {
		s.metrics.PaymentDuplicate(source)
		s.logger.Info("payment already settled",
			zap.String("order_id", order.ID.Hex()),
			zap.String("source", source),
			zap.String("payment_status", updated.PaymentStatus),
		)
		return updated, nil
	}

	s.metrics.PaymentConfirmed(source)
	s.logger.Info("order paid",
		zap.String("order_id", updated.ID.Hex()),
		zap.String("order_number", updated.OrderNumber),
		zap.String("source", source),
	)
	s.fulfil(ctx, updated)
	return updated, nil
}

// fulfil applies the post-payment side effects. None of them can fail the
// payment; problems are logged for follow-up.
func (s *Service) fulfil(ctx context.Context, order models.Order) {
	ids := make([]primitive.ObjectID, 0, len(order.Items))
	for _, item := range order.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("inventory lookup failed", zap.String("order_id", order.ID.Hex()), zap.Error(err))
	}
	for _, item := range order.Items {
		product, ok := products[item.ProductID]
		if !ok || !product.Inventory.TrackQuantity {
			continue
		}
		taken, err := s.products.DecrementInventory(ctx, item.ProductID, item.Quantity)
		if err != nil {
			s.logger.Error("inventory decrement failed",
				zap.String("order_id", order.ID.Hex()),
				zap.String("product_id", item.ProductID.Hex()),
				zap.Error(err),
			)
			continue
		}
		if !taken {
			s.metrics.InventoryShortfall()
			s.logger.Warn("inventory shortfall on paid order",
				zap.String("order_id", order.ID.Hex()),
				zap.String("product_id", item.ProductID.Hex()),
				zap.Int("quantity", item.Quantity),
			)
		}
	}

	if err := s.carts.Clear(ctx, order.CustomerID); err != nil {
		s.logger.Warn("cart clear failed", zap.String("user_id", order.CustomerID.Hex()), zap.Error(err))
	}
	s.sendEmail(ctx, emailConfirmation, order)
	s.publish(ctx, events.OrderPaid, order)
}

type WebhookResult struct {
	EventID   string
	EventType string
	Duplicate bool
}

// HandleWebhook verifies and applies a gateway event. Each event id is
// processed once; a failed attempt is forgotten so the gateway's retry runs
// again.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (WebhookResult, error) {
	ctx, span := s.tracer.Start(ctx, "orders.HandleWebhook")
	defer span.End()

	if s.gateway == nil {
		return WebhookResult{}, apperror.Unavailable(msgGatewayUnavailable)
	}
	event, err := s.gateway.ParseWebhook(payload, signature)
	if errors.Is(err, payment.ErrInvalidSignature) {
		return WebhookResult{}, apperror.Validation("Webhook signature verification failed")
	}
	if err != nil {
		return WebhookResult{}, apperror.Validation(fmt.Sprintf("Webhook Error: %v", err))
	}
	span.SetAttributes(attribute.String("webhook.type", event.Type))
	result := WebhookResult{EventID: event.ID, EventType: event.Type}

	first, err := s.eventLog.MarkProcessed(ctx, event.ID, event.Type)
	if err != nil {
		return WebhookResult{}, apperror.Internal("db error", err)
	}
	if !first {
		s.logger.Info("duplicate webhook delivery", zap.String("event_id", event.ID), zap.String("type", event.Type))
		result.Duplicate = true
		return result, nil
	}

	if err := s.dispatch(ctx, event); err != nil {
		if ferr := s.eventLog.Forget(ctx, event.ID); ferr != nil {
			s.logger.Error("forget webhook event failed", zap.String("event_id", event.ID), zap.Error(ferr))
		}
		return WebhookResult{}, err
	}
	return result, nil
}

func (s *Service) dispatch(ctx context.Context, event payment.Event) error {
	switch event.Type {
	case payment.EventPaymentSucceeded, payment.EventPaymentFailed:
	default:
		s.logger.Debug("unhandled webhook event", zap.String("type", event.Type))
		return nil
	}
	if event.Intent == nil {
		return nil
	}

	order, err := s.orderForIntent(ctx, *event.Intent)
	if errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("webhook for unknown order",
			zap.String("event_id", event.ID),
			zap.String("payment_intent", event.Intent.ID),
		)
		return nil
	}
	if err != nil {
		return apperror.Internal("db error", err)
	}

	if event.Type == payment.EventPaymentFailed {
		return s.applyPaymentFailure(ctx, order, *event.Intent)
	}

	if event.Intent.Amount != pricing.MinorUnits(order.Total) {
		s.logger.Error("webhook payment amount mismatch",
			zap.String("order_id", order.ID.Hex()),
			zap.Int64("intent_amount", event.Intent.Amount),
			zap.Float64("order_total", order.Total),
		)
		return nil
	}
	_, err = s.applyPaymentSuccess(ctx, order, sourceWebhook)
	if apperror.IsKind(err, apperror.KindConflict) {
		return nil
	}
	return err
}

func (s *Service) applyPaymentFailure(ctx context.Context, order models.Order, intent payment.Intent) error {
	updated, applied, err := s.orders.TransitionPayment(ctx, order.ID,
		models.PaymentStatusPending, models.PaymentStatusFailed, "", s.now())
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperror.Internal("db error", err)
	}
	if !applied {
		return nil
	}
	s.logger.Info("order payment failed",
		zap.String("order_id", updated.ID.Hex()),
		zap.String("reason", intent.FailureMessage),
	)
	s.publish(ctx, events.OrderPaymentFailed, updated)
	return nil
}

// orderForIntent resolves the order from intent metadata, falling back to the
// stored intent id for intents that were never annotated.
func (s *Service) orderForIntent(ctx context.Context, intent payment.Intent) (models.Order, error) {
	if raw := intent.Metadata["orderId"]; raw != "" {
		if id, err := primitive.ObjectIDFromHex(raw); err == nil {
			order, err := s.orders.FindByID(ctx, id)
			if err == nil && (order.PaymentIntentID == "" || order.PaymentIntentID == intent.ID) {
				return order, nil
			}
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return models.Order{}, err
			}
		}
	}
	return s.orders.FindByPaymentIntent(ctx, intent.ID)
}
