package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/database"
	"storefront/internal/models"
)

type CartRepository struct {
	col *mongo.Collection
}

func NewCartRepository(db *mongo.Database) *CartRepository {
	return &CartRepository{col: db.Collection(database.CartsCollection)}
}

// Get upserts so a cart always exists after the first read. Two first reads
// can race on the unique user index; the loser retries and finds the cart.
func (r *CartRepository) Get(ctx context.Context, userID primitive.ObjectID) (models.Cart, error) {
	var cart models.Cart
	err := retryOnDuplicate(func() error {
		var err error
		cart, err = r.upsert(ctx, userID)
		return err
	})
	return cart, err
}

func (r *CartRepository) upsert(ctx context.Context, userID primitive.ObjectID) (models.Cart, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	now := time.Now()
	var cart models.Cart
	err := r.col.FindOneAndUpdate(
		ctx,
		bson.M{"user": userID},
		bson.M{"$setOnInsert": bson.M{
			"user":      userID,
			"items":     []models.CartItem{},
			"createdAt": now,
			"updatedAt": now,
		}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&cart)
	if err != nil {
		return models.Cart{}, translate(err)
	}
	return cart, nil
}

func (r *CartRepository) SaveItems(ctx context.Context, userID primitive.ObjectID, items []models.CartItem) (models.Cart, error) {
	if items == nil {
		items = []models.CartItem{}
	}

	var cart models.Cart
	err := retryOnDuplicate(func() error {
		var err error
		cart, err = r.saveItems(ctx, userID, items)
		return err
	})
	return cart, err
}

func (r *CartRepository) saveItems(ctx context.Context, userID primitive.ObjectID, items []models.CartItem) (models.Cart, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	now := time.Now()
	var cart models.Cart
	err := r.col.FindOneAndUpdate(
		ctx,
		bson.M{"user": userID},
		bson.M{
			"$set":         bson.M{"items": items, "updatedAt": now},
			"$setOnInsert": bson.M{"user": userID, "createdAt": now},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&cart)
	if err != nil {
		return models.Cart{}, translate(err)
	}
	return cart, nil
}

func (r *CartRepository) Clear(ctx context.Context, userID primitive.ObjectID) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	_, err := r.col.UpdateOne(ctx,
		bson.M{"user": userID},
		bson.M{"$set": bson.M{"items": []models.CartItem{}, "updatedAt": time.Now()}},
	)
	return err
}
