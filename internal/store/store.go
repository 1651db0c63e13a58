// Package store declares the persistence contracts used by the services.
// Implementations live in mongostore (production) and memstore (tests and
// STORE_DRIVER=memory).
package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
	// CountActiveByRole ignores deactivated accounts.
	CountActiveByRole(ctx context.Context, role string) (int64, error)
	SetRole(ctx context.Context, id primitive.ObjectID, role string) (models.User, error)
	SetActive(ctx context.Context, id primitive.ObjectID, active bool) (models.User, error)
	SetAddresses(ctx context.Context, id primitive.ObjectID, addresses []models.Address) error
}

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id primitive.ObjectID) (models.Product, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Product, error)
	List(ctx context.Context, filter models.ProductFilter) ([]models.Product, int64, error)
	Update(ctx context.Context, id primitive.ObjectID, update models.ProductUpdate) (models.Product, error)
	Archive(ctx context.Context, id primitive.ObjectID) error
	IncrementViews(ctx context.Context, id primitive.ObjectID) (models.Product, error)
	// DecrementInventory takes qty units when at least qty are available and
	// records the sale. It reports false when stock was insufficient.
	DecrementInventory(ctx context.Context, id primitive.ObjectID, qty int) (bool, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	FindByID(ctx context.Context, id primitive.ObjectID) (models.Category, error)
	ListActive(ctx context.Context) ([]models.Category, error)
	ListChildren(ctx context.Context, parentID primitive.ObjectID) ([]models.Category, error)
	Update(ctx context.Context, id primitive.ObjectID, update models.CategoryUpdate) (models.Category, error)
	Deactivate(ctx context.Context, id primitive.ObjectID) error
}

type CartRepository interface {
	// Get returns the user's cart, creating an empty one when absent.
	Get(ctx context.Context, userID primitive.ObjectID) (models.Cart, error)
	SaveItems(ctx context.Context, userID primitive.ObjectID, items []models.CartItem) (models.Cart, error)
	Clear(ctx context.Context, userID primitive.ObjectID) error
}

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (models.Order, error)
	FindByPaymentIntent(ctx context.Context, intentID string) (models.Order, error)
	List(ctx context.Context, filter models.OrderFilter) ([]models.Order, int64, error)
	SetPaymentIntent(ctx context.Context, id primitive.ObjectID, intentID string) error
	// TransitionPayment moves paymentStatus from one value to another
	// atomically. When status is non-empty the order status is set in the
	// same write. applied is false when the order was not in state from.
	// A cancelled order is never moved to paid.
	TransitionPayment(ctx context.Context, id primitive.ObjectID, from, to, status string, at time.Time) (order models.Order, applied bool, err error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, update models.StatusUpdate) (models.Order, error)
	// DeleteUnpaid removes an order that is still cancellable. It reports
	// false when the order changed state since it was read.
	DeleteUnpaid(ctx context.Context, id primitive.ObjectID) (bool, error)
}

type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	FindActiveByHash(ctx context.Context, hash string) (models.RefreshToken, error)
	Revoke(ctx context.Context, id primitive.ObjectID, replacedBy *primitive.ObjectID) error
	RevokeByHash(ctx context.Context, hash string) (bool, error)
}

// EventLog remembers processed webhook event ids.
type EventLog interface {
	// MarkProcessed records eventID and reports true the first time only.
	MarkProcessed(ctx context.Context, eventID, eventType string) (bool, error)
	// Forget releases eventID so a redelivery is processed again.
	Forget(ctx context.Context, eventID string) error
}

// Repositories bundles every repository the application needs.
type Repositories struct {
	Users         UserRepository
	Products      ProductRepository
	Categories    CategoryRepository
	Carts         CartRepository
	Orders        OrderRepository
	RefreshTokens RefreshTokenRepository
	Events        EventLog
}
