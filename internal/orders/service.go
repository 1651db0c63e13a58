// Package orders turns carts into orders and drives them through payment and
// fulfilment.
package orders

import (
	"context"
	"errors"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"storefront/internal/apperror"
	"storefront/internal/events"
	"storefront/internal/metrics"
	"storefront/internal/models"
	"storefront/internal/notify"
	"storefront/internal/payment"
	"storefront/internal/pricing"
	"storefront/internal/store"
)

const (
	msgOrderNotFound = "Order not found"

	DefaultListLimit = 20
)

// Deps wires the workflow. Gateway may be nil, in which case orders are
// created without a payment handle and must be settled manually.
type Deps struct {
	Repos     store.Repositories
	Gateway   payment.Gateway
	Currency  string
	Notifier  notify.Notifier
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
	Tracer    trace.Tracer
}

type Service struct {
	orders    store.OrderRepository
	products  store.ProductRepository
	carts     store.CartRepository
	users     store.UserRepository
	eventLog  store.EventLog
	gateway   payment.Gateway
	currency  string
	notifier  notify.Notifier
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time
	suffix    pricing.SuffixSource
}

func NewService(d Deps) *Service {
	s := &Service{
		orders:    d.Repos.Orders,
		products:  d.Repos.Products,
		carts:     d.Repos.Carts,
		users:     d.Repos.Users,
		eventLog:  d.Repos.Events,
		gateway:   d.Gateway,
		currency:  d.Currency,
		notifier:  d.Notifier,
		publisher: d.Publisher,
		metrics:   d.Metrics,
		logger:    d.Logger,
		tracer:    d.Tracer,
		now:       time.Now,
		suffix:    pricing.RandomSuffix,
	}
	if s.currency == "" {
		s.currency = "usd"
	}
	if s.notifier == nil {
		s.notifier = notify.Disabled{}
	}
	if s.publisher == nil {
		s.publisher = events.Nop{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.logger = s.logger.Named("order")
	if s.tracer == nil {
		s.tracer = otel.Tracer("storefront/orders")
	}
	return s
}

type Page struct {
	Orders []models.Order `json:"orders"`
	Count  int            `json:"count"`
	Total  int64          `json:"total"`
	Page   int64          `json:"page"`
	Pages  int64          `json:"pages"`
}

// Get returns an order to its owner or to an admin.
func (s *Service) Get(ctx context.Context, caller models.User, id primitive.ObjectID) (models.Order, error) {
	order, err := s.find(ctx, id)
	if err != nil {
		return models.Order{}, err
	}
	if order.CustomerID != caller.ID && !caller.IsAdmin() {
		return models.Order{}, apperror.Forbidden("Not authorized to view this order")
	}
	return order, nil
}

func (s *Service) ListMine(ctx context.Context, userID primitive.ObjectID, page, limit int64) (Page, error) {
	return s.list(ctx, models.OrderFilter{CustomerID: &userID, Page: page, Limit: limit})
}

func (s *Service) ListAll(ctx context.Context, filter models.OrderFilter) (Page, error) {
	if filter.Status != "" && !models.ValidOrderStatus(filter.Status) {
		return Page{}, apperror.Validation("Invalid status filter")
	}
	filter.CustomerID = nil
	return s.list(ctx, filter)
}

func (s *Service) list(ctx context.Context, filter models.OrderFilter) (Page, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = DefaultListLimit
	}
	items, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return Page{}, apperror.Internal("db error", err)
	}
	return Page{
		Orders: items,
		Count:  len(items),
		Total:  total,
		Page:   filter.Page,
		Pages:  int64(math.Ceil(float64(total) / float64(filter.Limit))),
	}, nil
}

func (s *Service) find(ctx context.Context, id primitive.ObjectID) (models.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.Order{}, apperror.NotFound(msgOrderNotFound)
	}
	if err != nil {
		return models.Order{}, apperror.Internal("db error", err)
	}
	return order, nil
}

func (s *Service) publish(ctx context.Context, eventType string, order models.Order) {
	if err := s.publisher.Publish(ctx, events.NewOrderEvent(eventType, order, s.now())); err != nil {
		s.logger.Warn("publish order event failed",
			zap.String("event", eventType),
			zap.String("order_id", order.ID.Hex()),
			zap.Error(err),
		)
	}
}

type emailKind string

const (
	emailConfirmation emailKind = "order_confirmation"
	emailStatus       emailKind = "order_status"
)

// sendEmail is best-effort; failures are logged and counted only.
func (s *Service) sendEmail(ctx context.Context, kind emailKind, order models.Order) {
	customer, err := s.users.FindByID(ctx, order.CustomerID)
	if err != nil {
		s.logger.Warn("email skipped: customer lookup failed",
			zap.String("order_id", order.ID.Hex()),
			zap.Error(err),
		)
		s.metrics.Notification(string(kind), "failed")
		return
	}

	switch kind {
	case emailConfirmation:
		err = s.notifier.SendOrderConfirmation(ctx, order, customer)
	default:
		err = s.notifier.SendOrderStatusUpdate(ctx, order, customer)
	}

	switch {
	case errors.Is(err, notify.ErrDisabled):
		s.metrics.Notification(string(kind), "skipped")
	case err != nil:
		s.logger.Warn("email send failed",
			zap.String("kind", string(kind)),
			zap.String("order_id", order.ID.Hex()),
			zap.Error(err),
		)
		s.metrics.Notification(string(kind), "failed")
	default:
		s.metrics.Notification(string(kind), "sent")
	}
}
