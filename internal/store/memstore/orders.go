package memstore

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
	"storefront/internal/store"
)

type Orders struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]models.Order
}

func NewOrders() *Orders {
	return &Orders{byID: map[primitive.ObjectID]models.Order{}}
}

func cloneOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem{}, o.Items...)
	return o
}

func (r *Orders) Create(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byID {
		if existing.OrderNumber == order.OrderNumber {
			return store.ErrDuplicate
		}
	}
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	r.byID[order.ID] = cloneOrder(*order)
	return nil
}

func (r *Orders) FindByID(_ context.Context, id primitive.ObjectID) (models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.byID[id]
	if !ok {
		return models.Order{}, store.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (r *Orders) FindByPaymentIntent(_ context.Context, intentID string) (models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, o := range r.byID {
		if intentID != "" && o.PaymentIntentID == intentID {
			return cloneOrder(o), nil
		}
	}
	return models.Order{}, store.ErrNotFound
}

func (r *Orders) List(_ context.Context, f models.OrderFilter) ([]models.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := make([]models.Order, 0)
	for _, o := range r.byID {
		if f.CustomerID != nil && o.CustomerID != *f.CustomerID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.PaymentStatus != "" && o.PaymentStatus != f.PaymentStatus {
			continue
		}
		matched = append(matched, cloneOrder(o))
	}
	sortNewestFirst(matched, func(o models.Order) int64 { return o.CreatedAt.UnixNano() })
	return paginate(matched, f.Page, f.Limit), int64(len(matched)), nil
}

func (r *Orders) SetPaymentIntent(_ context.Context, id primitive.ObjectID, intentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	o.PaymentIntentID = intentID
	o.UpdatedAt = time.Now()
	r.byID[id] = o
	return nil
}

func (r *Orders) TransitionPayment(_ context.Context, id primitive.ObjectID, from, to, status string, at time.Time) (models.Order, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.byID[id]
	if !ok {
		return models.Order{}, false, store.ErrNotFound
	}
	if o.PaymentStatus != from {
		return cloneOrder(o), false, nil
	}
	if to == models.PaymentStatusPaid && o.Status == models.OrderStatusCancelled {
		return cloneOrder(o), false, nil
	}
	o.PaymentStatus = to
	if status != "" {
		o.Status = status
	}
	if to == models.PaymentStatusPaid {
		paidAt := at
		o.PaidAt = &paidAt
	}
	o.UpdatedAt = at
	r.byID[id] = o
	return cloneOrder(o), true, nil
}

func (r *Orders) UpdateStatus(_ context.Context, id primitive.ObjectID, u models.StatusUpdate) (models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.byID[id]
	if !ok {
		return models.Order{}, store.ErrNotFound
	}
	at := u.At
	o.Status = u.Status
	if u.TrackingNumber != "" {
		o.TrackingNumber = u.TrackingNumber
	}
	switch u.Status {
	case models.OrderStatusShipped:
		o.ShippedAt = &at
	case models.OrderStatusDelivered:
		o.DeliveredAt = &at
	case models.OrderStatusCancelled:
		o.CancelledAt = &at
	}
	o.UpdatedAt = at
	r.byID[id] = o
	return cloneOrder(o), nil
}

func (r *Orders) DeleteUnpaid(_ context.Context, id primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.byID[id]
	if !ok {
		return false, nil
	}
	if o.PaymentStatus == models.PaymentStatusPaid ||
		o.Status == models.OrderStatusShipped ||
		o.Status == models.OrderStatusDelivered {
		return false, nil
	}
	delete(r.byID, id)
	return true, nil
}
