// Package mongostore implements the store contracts on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/store"
)

const opTimeout = 5 * time.Second

func opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, opTimeout)
}

// translate maps driver errors onto store sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return errors.Join(store.ErrDuplicate, err)
	default:
		return err
	}
}

// retryOnDuplicate runs an upsert a second time when the first lost a race
// on a unique index.
func retryOnDuplicate(upsert func() error) error {
	err := upsert()
	if errors.Is(err, store.ErrDuplicate) {
		err = upsert()
	}
	return err
}

// New wires every repository onto db. events may be nil to use the
// webhook_events collection.
func New(db *mongo.Database, events store.EventLog) store.Repositories {
	if events == nil {
		events = NewEventLog(db)
	}
	return store.Repositories{
		Users:         NewUserRepository(db),
		Products:      NewProductRepository(db),
		Categories:    NewCategoryRepository(db),
		Carts:         NewCartRepository(db),
		Orders:        NewOrderRepository(db),
		RefreshTokens: NewRefreshTokenRepository(db),
		Events:        events,
	}
}

var (
	_ store.UserRepository         = (*UserRepository)(nil)
	_ store.ProductRepository      = (*ProductRepository)(nil)
	_ store.CategoryRepository     = (*CategoryRepository)(nil)
	_ store.CartRepository         = (*CartRepository)(nil)
	_ store.OrderRepository        = (*OrderRepository)(nil)
	_ store.RefreshTokenRepository = (*RefreshTokenRepository)(nil)
	_ store.EventLog               = (*EventLog)(nil)
)
