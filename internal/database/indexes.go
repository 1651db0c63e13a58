package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	UsersCollection         = "users"
	ProductsCollection      = "products"
	CategoriesCollection    = "categories"
	CartsCollection         = "carts"
	OrdersCollection        = "orders"
	RefreshTokensCollection = "refresh_tokens"
	WebhookEventsCollection = "webhook_events"
)

// EnsureIndexes creates every index the repositories rely on. Unique indexes
// back the duplicate-key errors surfaced as conflicts.
func EnsureIndexes(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	plan := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName("email_unique").SetUnique(true)},
			{Keys: bson.D{{Key: "role", Value: 1}}, Options: options.Index().SetName("role_index")},
		},
		ProductsCollection: {
			{Keys: bson.D{{Key: "sku", Value: 1}}, Options: options.Index().SetName("sku_unique").SetUnique(true)},
			{
				Keys: bson.D{
					{Key: "name", Value: "text"},
					{Key: "description", Value: "text"},
					{Key: "tags", Value: "text"},
				},
				Options: options.Index().SetName("catalog_text"),
			},
			{Keys: bson.D{{Key: "category", Value: 1}, {Key: "status", Value: 1}}, Options: options.Index().SetName("category_status")},
			{Keys: bson.D{{Key: "price", Value: 1}}, Options: options.Index().SetName("price_index")},
		},
		CategoriesCollection: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetName("slug_unique").SetUnique(true)},
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetName("name_unique").SetUnique(true)},
			{Keys: bson.D{{Key: "parent", Value: 1}}, Options: options.Index().SetName("parent_index")},
		},
		CartsCollection: {
			{Keys: bson.D{{Key: "user", Value: 1}}, Options: options.Index().SetName("user_unique").SetUnique(true)},
		},
		OrdersCollection: {
			{Keys: bson.D{{Key: "orderNumber", Value: 1}}, Options: options.Index().SetName("orderNumber_unique").SetUnique(true)},
			{Keys: bson.D{{Key: "customer", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("customer_createdAt")},
			{Keys: bson.D{{Key: "status", Value: 1}}, Options: options.Index().SetName("status_index")},
			{Keys: bson.D{{Key: "paymentStatus", Value: 1}}, Options: options.Index().SetName("paymentStatus_index")},
			{Keys: bson.D{{Key: "paymentIntentId", Value: 1}}, Options: options.Index().SetName("paymentIntentId_index").SetSparse(true)},
		},
		RefreshTokensCollection: {
			{Keys: bson.D{{Key: "tokenHash", Value: 1}}, Options: options.Index().SetName("tokenHash_unique").SetUnique(true)},
			{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetName("expiresAt_ttl").SetExpireAfterSeconds(0)},
		},
		WebhookEventsCollection: {
			{Keys: bson.D{{Key: "processedAt", Value: 1}}, Options: options.Index().SetName("processedAt_ttl").SetExpireAfterSeconds(int32((30 * 24 * time.Hour).Seconds()))},
		},
	}

	for collection, models := range plan {
		createCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		names, err := db.Collection(collection).Indexes().CreateMany(createCtx, models)
		cancel()
		if err != nil {
			logger.Warn("index creation failed", zap.String("collection", collection), zap.Error(err))
			return fmt.Errorf("ensure %s indexes: %w", collection, err)
		}
		logger.Info("indexes ready", zap.String("collection", collection), zap.Strings("indexes", names))
	}
	return nil
}
