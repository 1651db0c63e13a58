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

type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(database.UsersCollection)}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	if user.Addresses == nil {
		user.Addresses = []models.Address{}
	}
	res, err := r.col.InsertOne(ctx, user)
	if err != nil {
		return translate(err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		user.ID = id
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (models.User, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	var user models.User
	if err := r.col.FindOne(ctx, filter).Decode(&user); err != nil {
		return models.User{}, translate(err)
	}
	return user, nil
}

func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetProjection(bson.M{"passwordHash": 0})
	cursor, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := make([]models.User, 0)
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) CountActiveByRole(ctx context.Context, role string) (int64, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	return r.col.CountDocuments(ctx, bson.M{"role": role, "isActive": true})
}

func (r *UserRepository) SetRole(ctx context.Context, id primitive.ObjectID, role string) (models.User, error) {
	return r.set(ctx, id, bson.M{"role": role})
}

func (r *UserRepository) SetActive(ctx context.Context, id primitive.ObjectID, active bool) (models.User, error) {
	return r.set(ctx, id, bson.M{"isActive": active})
}

func (r *UserRepository) set(ctx context.Context, id primitive.ObjectID, fields bson.M) (models.User, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	fields["updatedAt"] = time.Now()
	var updated models.User
	err := r.col.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": fields},
		options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetProjection(bson.M{"passwordHash": 0}),
	).Decode(&updated)
	if err != nil {
		return models.User{}, translate(err)
	}
	return updated, nil
}

func (r *UserRepository) SetAddresses(ctx context.Context, id primitive.ObjectID, addresses []models.Address) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	res, err := r.col.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"addresses": addresses,
			"updatedAt": time.Now(),
		},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return translate(mongo.ErrNoDocuments)
	}
	return nil
}
