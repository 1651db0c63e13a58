package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/database"
	"storefront/internal/models"
)

type RefreshTokenRepository struct {
	col *mongo.Collection
}

func NewRefreshTokenRepository(db *mongo.Database) *RefreshTokenRepository {
	return &RefreshTokenRepository{col: db.Collection(database.RefreshTokensCollection)}
}

func (r *RefreshTokenRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	res, err := r.col.InsertOne(ctx, token)
	if err != nil {
		return translate(err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		token.ID = id
	}
	return nil
}

func (r *RefreshTokenRepository) FindActiveByHash(ctx context.Context, hash string) (models.RefreshToken, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	var token models.RefreshToken
	err := r.col.FindOne(ctx, bson.M{"tokenHash": hash, "revoked": false}).Decode(&token)
	if err != nil {
		return models.RefreshToken{}, translate(err)
	}
	return token, nil
}

func (r *RefreshTokenRepository) Revoke(ctx context.Context, id primitive.ObjectID, replacedBy *primitive.ObjectID) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	set := bson.M{"revoked": true}
	if replacedBy != nil {
		set["replacedByToken"] = *replacedBy
	}
	_, err := r.col.UpdateByID(ctx, id, bson.M{"$set": set})
	return err
}

func (r *RefreshTokenRepository) RevokeByHash(ctx context.Context, hash string) (bool, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		bson.M{"tokenHash": hash, "revoked": false},
		bson.M{"$set": bson.M{"revoked": true}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}
