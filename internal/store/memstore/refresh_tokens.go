package memstore

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
	"storefront/internal/store"
)

type RefreshTokens struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]models.RefreshToken
}

func NewRefreshTokens() *RefreshTokens {
	return &RefreshTokens{byID: map[primitive.ObjectID]models.RefreshToken{}}
}

func (r *RefreshTokens) Create(_ context.Context, token *models.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.byID {
		if t.TokenHash == token.TokenHash {
			return store.ErrDuplicate
		}
	}
	if token.ID.IsZero() {
		token.ID = primitive.NewObjectID()
	}
	r.byID[token.ID] = *token
	return nil
}

func (r *RefreshTokens) FindActiveByHash(_ context.Context, hash string) (models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.byID {
		if t.TokenHash == hash && !t.Revoked {
			return t, nil
		}
	}
	return models.RefreshToken{}, store.ErrNotFound
}

func (r *RefreshTokens) Revoke(_ context.Context, id primitive.ObjectID, replacedBy *primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	t.Revoked = true
	t.ReplacedByToken = replacedBy
	r.byID[id] = t
	return nil
}

func (r *RefreshTokens) RevokeByHash(_ context.Context, hash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, t := range r.byID {
		if t.TokenHash == hash && !t.Revoked {
			t.Revoked = true
			r.byID[id] = t
			return true, nil
		}
	}
	return false, nil
}
