package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
	"storefront/internal/store"
)

type Categories struct {
	mu   sync.RWMutex
	byID map[primitive.ObjectID]models.Category
}

func NewCategories() *Categories {
	return &Categories{byID: map[primitive.ObjectID]models.Category{}}
}

func (r *Categories) conflicts(name, slug string, except primitive.ObjectID) bool {
	for id, c := range r.byID {
		if id == except {
			continue
		}
		if (name != "" && c.Name == name) || (slug != "" && c.Slug == slug) {
			return true
		}
	}
	return false
}

func (r *Categories) Create(_ context.Context, category *models.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conflicts(category.Name, category.Slug, primitive.NilObjectID) {
		return store.ErrDuplicate
	}
	if category.ID.IsZero() {
		category.ID = primitive.NewObjectID()
	}
	r.byID[category.ID] = *category
	return nil
}

func (r *Categories) FindByID(_ context.Context, id primitive.ObjectID) (models.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byID[id]
	if !ok {
		return models.Category{}, store.ErrNotFound
	}
	return c, nil
}

func (r *Categories) filter(keep func(models.Category) bool) []models.Category {
	out := make([]models.Category, 0)
	for _, c := range r.byID {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Categories) ListActive(_ context.Context) ([]models.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.filter(func(c models.Category) bool { return c.IsActive }), nil
}

func (r *Categories) ListChildren(_ context.Context, parentID primitive.ObjectID) ([]models.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.filter(func(c models.Category) bool {
		return c.IsActive && c.ParentID != nil && *c.ParentID == parentID
	}), nil
}

func (r *Categories) Update(_ context.Context, id primitive.ObjectID, u models.CategoryUpdate) (models.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return models.Category{}, store.ErrNotFound
	}
	name, slug := "", ""
	if u.Name != nil {
		name = *u.Name
	}
	if u.Slug != nil {
		slug = *u.Slug
	}
	if r.conflicts(name, slug, id) {
		return models.Category{}, store.ErrDuplicate
	}
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.Slug != nil {
		c.Slug = *u.Slug
	}
	if u.Description != nil {
		c.Description = *u.Description
	}
	if u.Image != nil {
		c.Image = *u.Image
	}
	if u.IsActive != nil {
		c.IsActive = *u.IsActive
	}
	if u.ParentID != nil {
		parent := *u.ParentID
		c.ParentID = &parent
	} else if u.ClearParent {
		c.ParentID = nil
	}
	c.UpdatedAt = time.Now()
	r.byID[id] = c
	return c, nil
}

func (r *Categories) Deactivate(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	c.IsActive = false
	c.UpdatedAt = time.Now()
	r.byID[id] = c
	return nil
}
