package memstore

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

type Carts struct {
	mu     sync.Mutex
	byUser map[primitive.ObjectID]models.Cart
}

func NewCarts() *Carts {
	return &Carts{byUser: map[primitive.ObjectID]models.Cart{}}
}

func cloneCart(c models.Cart) models.Cart {
	items := make([]models.CartItem, len(c.Items))
	for i, item := range c.Items {
		if item.Variant != nil {
			variant := make(map[string]string, len(item.Variant))
			for k, v := range item.Variant {
				variant[k] = v
			}
			item.Variant = variant
		}
		items[i] = item
	}
	c.Items = items
	return c
}

func (r *Carts) getLocked(userID primitive.ObjectID) models.Cart {
	cart, ok := r.byUser[userID]
	if !ok {
		now := time.Now()
		cart = models.Cart{
			ID:        primitive.NewObjectID(),
			UserID:    userID,
			Items:     []models.CartItem{},
			CreatedAt: now,
			UpdatedAt: now,
		}
		r.byUser[userID] = cart
	}
	return cart
}

func (r *Carts) Get(_ context.Context, userID primitive.ObjectID) (models.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return cloneCart(r.getLocked(userID)), nil
}

func (r *Carts) SaveItems(_ context.Context, userID primitive.ObjectID, items []models.CartItem) (models.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cart := r.getLocked(userID)
	cart.Items = items
	cart.UpdatedAt = time.Now()
	cart = cloneCart(cart)
	r.byUser[userID] = cart
	return cloneCart(cart), nil
}

func (r *Carts) Clear(_ context.Context, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cart, ok := r.byUser[userID]; ok {
		cart.Items = []models.CartItem{}
		cart.UpdatedAt = time.Now()
		r.byUser[userID] = cart
	}
	return nil
}
