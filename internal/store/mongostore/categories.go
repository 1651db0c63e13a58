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

type CategoryRepository struct {
	col *mongo.Collection
}

func NewCategoryRepository(db *mongo.Database) *CategoryRepository {
	return &CategoryRepository{col: db.Collection(database.CategoriesCollection)}
}

func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	res, err := r.col.InsertOne(ctx, category)
	if err != nil {
		return translate(err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		category.ID = id
	}
	return nil
}

func (r *CategoryRepository) FindByID(ctx context.Context, id primitive.ObjectID) (models.Category, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	var category models.Category
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&category); err != nil {
		return models.Category{}, translate(err)
	}
	return category, nil
}

func (r *CategoryRepository) ListActive(ctx context.Context) ([]models.Category, error) {
	return r.find(ctx, bson.M{"isActive": true})
}

func (r *CategoryRepository) ListChildren(ctx context.Context, parentID primitive.ObjectID) ([]models.Category, error) {
	return r.find(ctx, bson.M{"parent": parentID, "isActive": true})
}

func (r *CategoryRepository) find(ctx context.Context, filter bson.M) ([]models.Category, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	cursor, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	categories := make([]models.Category, 0)
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *CategoryRepository) Update(ctx context.Context, id primitive.ObjectID, u models.CategoryUpdate) (models.Category, error) {
	set := bson.M{"updatedAt": time.Now()}
	update := bson.M{}
	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.Slug != nil {
		set["slug"] = *u.Slug
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.Image != nil {
		set["image"] = *u.Image
	}
	if u.IsActive != nil {
		set["isActive"] = *u.IsActive
	}
	if u.ParentID != nil {
		set["parent"] = *u.ParentID
	} else if u.ClearParent {
		update["$unset"] = bson.M{"parent": ""}
	}
	update["$set"] = set

	ctx, cancel := opContext(ctx)
	defer cancel()

	var updated models.Category
	err := r.col.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		return models.Category{}, translate(err)
	}
	return updated, nil
}

func (r *CategoryRepository) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return translate(mongo.ErrNoDocuments)
	}
	return nil
}
