package memstore

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
	"storefront/internal/store"
)

type Users struct {
	mu   sync.RWMutex
	byID map[primitive.ObjectID]models.User
}

func NewUsers() *Users {
	return &Users{byID: map[primitive.ObjectID]models.User{}}
}

func cloneUser(u models.User) models.User {
	u.Addresses = append([]models.Address{}, u.Addresses...)
	return u
}

func (r *Users) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byID {
		if existing.Email == user.Email {
			return store.ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.Addresses == nil {
		user.Addresses = []models.Address{}
	}
	r.byID[user.ID] = cloneUser(*user)
	return nil
}

func (r *Users) FindByID(_ context.Context, id primitive.ObjectID) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *Users) FindByEmail(_ context.Context, email string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.byID {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return models.User{}, store.ErrNotFound
}

func (r *Users) List(_ context.Context) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.User, 0, len(r.byID))
	for _, u := range r.byID {
		u = cloneUser(u)
		u.PasswordHash = ""
		out = append(out, u)
	}
	sortNewestFirst(out, func(u models.User) int64 { return u.CreatedAt.UnixNano() })
	return out, nil
}

func (r *Users) CountActiveByRole(_ context.Context, role string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, u := range r.byID {
		if u.Role == role && u.IsActive {
			n++
		}
	}
	return n, nil
}

func (r *Users) SetRole(_ context.Context, id primitive.ObjectID, role string) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	u.Role = role
	u.UpdatedAt = time.Now()
	r.byID[id] = u
	return cloneUser(u), nil
}

func (r *Users) SetActive(_ context.Context, id primitive.ObjectID, active bool) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	u.IsActive = active
	u.UpdatedAt = time.Now()
	r.byID[id] = u
	return cloneUser(u), nil
}

func (r *Users) SetAddresses(_ context.Context, id primitive.ObjectID, addresses []models.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	u.Addresses = append([]models.Address{}, addresses...)
	u.UpdatedAt = time.Now()
	r.byID[id] = u
	return nil
}
