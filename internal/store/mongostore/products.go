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

type ProductRepository struct {
	col *mongo.Collection
}

func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{col: db.Collection(database.ProductsCollection)}
}

func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	res, err := r.col.InsertOne(ctx, product)
	if err != nil {
		return translate(err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		product.ID = id
	}
	return nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id primitive.ObjectID) (models.Product, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	var product models.Product
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&product); err != nil {
		return models.Product{}, translate(err)
	}
	return product, nil
}

func (r *ProductRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Product, error) {
	out := make(map[primitive.ObjectID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	ctx, cancel := opContext(ctx)
	defer cancel()

	cursor, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var products []models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, err
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

func (r *ProductRepository) List(ctx context.Context, f models.ProductFilter) ([]models.Product, int64, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.CategoryID != nil {
		filter["category"] = *f.CategoryID
	}
	if f.Featured != nil {
		filter["featured"] = *f.Featured
	}
	priceRange := bson.M{}
	if f.MinPrice != nil {
		priceRange["$gte"] = *f.MinPrice
	}
	if f.MaxPrice != nil {
		priceRange["$lte"] = *f.MaxPrice
	}
	if len(priceRange) > 0 {
		filter["price"] = priceRange
	}

	opts := options.Find().
		SetSkip((f.Page - 1) * f.Limit).
		SetLimit(f.Limit)
	if f.Search != "" {
		filter["$text"] = bson.M{"$search": f.Search}
		opts.SetProjection(bson.M{"score": bson.M{"$meta": "textScore"}}).
			SetSort(bson.D{{Key: "score", Value: bson.M{"$meta": "textScore"}}})
	} else {
		opts.SetSort(bson.D{{Key: "createdAt", Value: -1}})
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	products := make([]models.Product, 0)
	if err := cursor.All(ctx, &products); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *ProductRepository) Update(ctx context.Context, id primitive.ObjectID, u models.ProductUpdate) (models.Product, error) {
	set := bson.M{"updatedAt": time.Now()}
	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.Price != nil {
		set["price"] = *u.Price
	}
	if u.CompareAtPrice != nil {
		set["compareAtPrice"] = *u.CompareAtPrice
	}
	if u.SKU != nil {
		set["sku"] = *u.SKU
	}
	if u.CategoryID != nil {
		set["category"] = *u.CategoryID
	}
	if u.Images != nil {
		set["images"] = *u.Images
	}
	if u.Variants != nil {
		set["variants"] = *u.Variants
	}
	if u.Inventory != nil {
		set["inventory"] = *u.Inventory
	}
	if u.Status != nil {
		set["status"] = *u.Status
	}
	if u.Featured != nil {
		set["featured"] = *u.Featured
	}
	if u.Tags != nil {
		set["tags"] = models.NormalizeTags(*u.Tags)
	}
	if u.SEO != nil {
		set["seo"] = *u.SEO
	}

	ctx, cancel := opContext(ctx)
	defer cancel()

	var updated models.Product
	err := r.col.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		return models.Product{}, translate(err)
	}
	return updated, nil
}

func (r *ProductRepository) Archive(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	res, err := r.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"status":    models.ProductStatusArchived,
		"updatedAt": time.Now(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return translate(mongo.ErrNoDocuments)
	}
	return nil
}

func (r *ProductRepository) IncrementViews(ctx context.Context, id primitive.ObjectID) (models.Product, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	var updated models.Product
	err := r.col.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"views": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		return models.Product{}, translate(err)
	}
	return updated, nil
}

// DecrementInventory is a single conditional update, so concurrent callers can
// never take the quantity below zero.
func (r *ProductRepository) DecrementInventory(ctx context.Context, id primitive.ObjectID, qty int) (bool, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	filter := bson.M{
		"_id":                     id,
		"inventory.trackQuantity": true,
		"inventory.quantity":      bson.M{"$gte": qty},
	}
	update := bson.M{
		"$inc": bson.M{"inventory.quantity": -qty, "salesCount": qty},
		"$set": bson.M{"updatedAt": time.Now()},
	}
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}
