package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/database"
	"storefront/internal/models"
)

type OrderRepository struct {
	col *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{col: db.Collection(database.OrdersCollection)}
}

func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	res, err := r.col.InsertOne(ctx, order)
	if err != nil {
		return translate(err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		order.ID = id
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id primitive.ObjectID) (models.Order, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	var order models.Order
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&order); err != nil {
		return models.Order{}, translate(err)
	}
	return order, nil
}

func (r *OrderRepository) FindByPaymentIntent(ctx context.Context, intentID string) (models.Order, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	var order models.Order
	if err := r.col.FindOne(ctx, bson.M{"paymentIntentId": intentID}).Decode(&order); err != nil {
		return models.Order{}, translate(err)
	}
	return order, nil
}

func (r *OrderRepository) List(ctx context.Context, f models.OrderFilter) ([]models.Order, int64, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	filter := bson.M{}
	if f.CustomerID != nil {
		filter["customer"] = *f.CustomerID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.PaymentStatus != "" {
		filter["paymentStatus"] = f.PaymentStatus
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if f.Limit > 0 {
		opts.SetSkip((f.Page - 1) * f.Limit).SetLimit(f.Limit)
	}
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	orders := make([]models.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *OrderRepository) SetPaymentIntent(ctx context.Context, id primitive.ObjectID, intentID string) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	_, err := r.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"paymentIntentId": intentID,
		"updatedAt":       time.Now(),
	}})
	return err
}

// TransitionPayment filters on the expected paymentStatus so only one of any
// number of concurrent callers observes applied=true.
func (r *OrderRepository) TransitionPayment(ctx context.Context, id primitive.ObjectID, from, to, status string, at time.Time) (models.Order, bool, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	set := bson.M{"paymentStatus": to, "updatedAt": at}
	if status != "" {
		set["status"] = status
	}
	if to == models.PaymentStatusPaid {
		set["paidAt"] = at
	}

	filter := bson.M{"_id": id, "paymentStatus": from}
	if to == models.PaymentStatusPaid {
		filter["status"] = bson.M{"$ne": models.OrderStatusCancelled}
	}

	var updated models.Order
	err := r.col.FindOneAndUpdate(
		ctx,
		filter,
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == nil {
		return updated, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Order{}, false, err
	}

	current, findErr := r.FindByID(ctx, id)
	if findErr != nil {
		return models.Order{}, false, findErr
	}
	return current, false, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, u models.StatusUpdate) (models.Order, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	set := bson.M{"status": u.Status, "updatedAt": u.At}
	if u.TrackingNumber != "" {
		set["trackingNumber"] = u.TrackingNumber
	}
	switch u.Status {
	case models.OrderStatusShipped:
		set["shippedAt"] = u.At
	case models.OrderStatusDelivered:
		set["deliveredAt"] = u.At
	case models.OrderStatusCancelled:
		set["cancelledAt"] = u.At
	}

	var updated models.Order
	err := r.col.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		return models.Order{}, translate(err)
	}
	return updated, nil
}

func (r *OrderRepository) DeleteUnpaid(ctx context.Context, id primitive.ObjectID) (bool, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{
		"_id":           id,
		"paymentStatus": bson.M{"$ne": models.PaymentStatusPaid},
		"status":        bson.M{"$nin": []string{models.OrderStatusShipped, models.OrderStatusDelivered}},
	})
	if err != nil {
		return false, err
	}
	return res.DeletedCount == 1, nil
}
