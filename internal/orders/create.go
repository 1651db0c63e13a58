package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"storefront/internal/apperror"
	"storefront/internal/events"
	"storefront/internal/models"
	"storefront/internal/pricing"
	"storefront/internal/store"
)

const (
	orderNumberAttempts = 3

	msgCreated       = "Order created successfully"
	msgManualPayment = "Order created. Online payment is unavailable, payment must be completed manually."
)

type CreateInput struct {
	ShippingAddress models.ShippingAddress
	Notes           string
}

type CreateResult struct {
	Order models.Order
	// ClientSecret is empty when no payment intent could be created.
	ClientSecret string
	Message      string
}

// MissingAddressFields lists the empty shipping fields by JSON name.
func MissingAddressFields(a models.ShippingAddress) []string {
	fields := []struct {
		name  string
		value string
	}{
		{"street", a.Street},
		{"city", a.City},
		{"state", a.State},
		{"zipCode", a.ZipCode},
		{"country", a.Country},
	}
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Create snapshots the caller's cart into a pending order. Stock is checked
// here but only taken once payment succeeds.
func (s *Service) Create(ctx context.Context, userID primitive.ObjectID, in CreateInput) (CreateResult, error) {
	ctx, span := s.tracer.Start(ctx, "orders.Create")
	defer span.End()

	if missing := MissingAddressFields(in.ShippingAddress); len(missing) > 0 {
		return CreateResult{}, apperror.Validation("Complete shipping address is required").With("missing", missing)
	}

	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return CreateResult{}, apperror.Internal("db error", err)
	}
	if len(cart.Items) == 0 {
		return CreateResult{}, apperror.Validation("Cart is empty")
	}

	items, lines, err := s.snapshot(ctx, cart.Items)
	if err != nil {
		return CreateResult{}, err
	}
	totals := pricing.ComputeTotals(lines)

	now := s.now()
	order := models.Order{
		CustomerID:      userID,
		Items:           items,
		Subtotal:        totals.Subtotal,
		Tax:             totals.Tax,
		Shipping:        totals.Shipping,
		Total:           totals.Total,
		Status:          models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusPending,
		ShippingAddress: trimAddress(in.ShippingAddress),
		Notes:           strings.TrimSpace(in.Notes),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var clientSecret string
	if s.gateway != nil {
		intent, err := s.gateway.CreateIntent(ctx, pricing.MinorUnits(order.Total), s.currency, map[string]string{
			"userId": userID.Hex(),
		})
		if err != nil {
			s.logger.Warn("payment intent creation failed", zap.String("user_id", userID.Hex()), zap.Error(err))
		} else {
			order.PaymentIntentID = intent.ID
			clientSecret = intent.ClientSecret
		}
	}

	if err := s.insert(ctx, &order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert order")
		return CreateResult{}, err
	}
	span.SetAttributes(
		attribute.String("order.id", order.ID.Hex()),
		attribute.Float64("order.total", order.Total),
	)

	if order.PaymentIntentID != "" {
		err := s.gateway.AnnotateIntent(ctx, order.PaymentIntentID, map[string]string{
			"orderId":     order.ID.Hex(),
			"orderNumber": order.OrderNumber,
			"userId":      userID.Hex(),
		})
		if err != nil {
			s.logger.Warn("payment intent annotation failed",
				zap.String("order_id", order.ID.Hex()),
				zap.String("payment_intent", order.PaymentIntentID),
				zap.Error(err),
			)
		}
	}

	s.metrics.OrderCreated()
	s.publish(ctx, events.OrderCreated, order)
	s.logger.Info("order created",
		zap.String("order_id", order.ID.Hex()),
		zap.String("order_number", order.OrderNumber),
		zap.Float64("total", order.Total),
	)

	result := CreateResult{Order: order, ClientSecret: clientSecret, Message: msgCreated}
	if clientSecret == "" {
		result.Message = msgManualPayment
	}
	return result, nil
}

// snapshot validates every cart line and copies the product data the order
// keeps. Any bad line rejects the whole order.
func (s *Service) snapshot(ctx context.Context, cartItems []models.CartItem) ([]models.OrderItem, []pricing.Line, error) {
	ids := make([]primitive.ObjectID, 0, len(cartItems))
	for _, item := range cartItems {
		ids = append(ids, item.ProductID)
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, nil, apperror.Internal("db error", err)
	}

	// quantities are summed per product so two variants cannot oversell
	requested := map[primitive.ObjectID]int{}
	for _, item := range cartItems {
		requested[item.ProductID] += item.Quantity
	}

	items := make([]models.OrderItem, 0, len(cartItems))
	lines := make([]pricing.Line, 0, len(cartItems))
	for _, item := range cartItems {
		product, ok := products[item.ProductID]
		if !ok {
			return nil, nil, apperror.Validation("Product in cart no longer exists").
				With("productId", item.ProductID.Hex())
		}
		if product.Status != models.ProductStatusActive {
			return nil, nil, apperror.Validation(fmt.Sprintf("Product %s is not available", product.Name)).
				With("productId", product.ID.Hex())
		}
		if want := requested[product.ID]; !pricing.HasStock(product, want) {
			return nil, nil, apperror.Validation(fmt.Sprintf("Insufficient stock for %s", product.Name)).
				With("productId", product.ID.Hex()).
				With("available", product.Inventory.Quantity).
				With("requested", want)
		}

		snapshot := models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  item.Quantity,
			Variant:   item.Variant,
		}
		if len(product.Images) > 0 {
			snapshot.Image = product.Images[0]
		}
		items = append(items, snapshot)
		lines = append(lines, pricing.Line{Price: product.Price, Quantity: item.Quantity})
	}
	return items, lines, nil
}

// insert assigns an order number, retrying when the random suffix collides.
func (s *Service) insert(ctx context.Context, order *models.Order) error {
	var err error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		order.OrderNumber = pricing.GenerateOrderNumber(s.now(), s.suffix)
		err = s.orders.Create(ctx, order)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrDuplicate) {
			return apperror.Internal("db error", err)
		}
		s.logger.Debug("order number collision", zap.String("order_number", order.OrderNumber))
	}
	return apperror.Internal("could not allocate order number", err)
}

func trimAddress(a models.ShippingAddress) models.ShippingAddress {
	return models.ShippingAddress{
		Street:  strings.TrimSpace(a.Street),
		City:    strings.TrimSpace(a.City),
		State:   strings.TrimSpace(a.State),
		ZipCode: strings.TrimSpace(a.ZipCode),
		Country: strings.TrimSpace(a.Country),
	}
}
