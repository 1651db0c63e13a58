package memstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
	"storefront/internal/store"
)

type Products struct {
	mu   sync.RWMutex
	byID map[primitive.ObjectID]models.Product
}

func NewProducts() *Products {
	return &Products{byID: map[primitive.ObjectID]models.Product{}}
}

func cloneProduct(p models.Product) models.Product {
	p.Images = append([]string{}, p.Images...)
	p.Variants = append([]models.Variant{}, p.Variants...)
	p.Tags = append(models.StringList{}, p.Tags...)
	return p
}

func (r *Products) skuTaken(sku string, except primitive.ObjectID) bool {
	for id, p := range r.byID {
		if id != except && p.SKU == sku {
			return true
		}
	}
	return false
}

func (r *Products) Create(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.skuTaken(product.SKU, primitive.NilObjectID) {
		return store.ErrDuplicate
	}
	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	r.byID[product.ID] = cloneProduct(*product)
	return nil
}

func (r *Products) FindByID(_ context.Context, id primitive.ObjectID) (models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	if !ok {
		return models.Product{}, store.ErrNotFound
	}
	return cloneProduct(p), nil
}

func (r *Products) FindByIDs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[primitive.ObjectID]models.Product, len(ids))
	for _, id := range ids {
		if p, ok := r.byID[id]; ok {
			out[id] = cloneProduct(p)
		}
	}
	return out, nil
}

func matchesSearch(p models.Product, search string) bool {
	terms := strings.Fields(strings.ToLower(search))
	haystack := strings.ToLower(p.Name + " " + p.Description + " " + strings.Join(p.Tags, " "))
	for _, term := range terms {
		if strings.Contains(haystack, term) {
			return true
		}
	}
	return false
}

func (r *Products) List(_ context.Context, f models.ProductFilter) ([]models.Product, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]models.Product, 0)
	for _, p := range r.byID {
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.CategoryID != nil && p.CategoryID != *f.CategoryID {
			continue
		}
		if f.Featured != nil && p.Featured != *f.Featured {
			continue
		}
		if f.MinPrice != nil && p.Price < *f.MinPrice {
			continue
		}
		if f.MaxPrice != nil && p.Price > *f.MaxPrice {
			continue
		}
		if f.Search != "" && !matchesSearch(p, f.Search) {
			continue
		}
		matched = append(matched, cloneProduct(p))
	}
	sortNewestFirst(matched, func(p models.Product) int64 { return p.CreatedAt.UnixNano() })
	return paginate(matched, f.Page, f.Limit), int64(len(matched)), nil
}

func (r *Products) Update(_ context.Context, id primitive.ObjectID, u models.ProductUpdate) (models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byID[id]
	if !ok {
		return models.Product{}, store.ErrNotFound
	}
	if u.SKU != nil && r.skuTaken(*u.SKU, id) {
		return models.Product{}, store.ErrDuplicate
	}
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.CompareAtPrice != nil {
		p.CompareAtPrice = *u.CompareAtPrice
	}
	if u.SKU != nil {
		p.SKU = *u.SKU
	}
	if u.CategoryID != nil {
		p.CategoryID = *u.CategoryID
	}
	if u.Images != nil {
		p.Images = append([]string{}, (*u.Images)...)
	}
	if u.Variants != nil {
		p.Variants = append([]models.Variant{}, (*u.Variants)...)
	}
	if u.Inventory != nil {
		p.Inventory = *u.Inventory
	}
	if u.Status != nil {
		p.Status = *u.Status
	}
	if u.Featured != nil {
		p.Featured = *u.Featured
	}
	if u.Tags != nil {
		p.Tags = models.NormalizeTags(*u.Tags)
	}
	if u.SEO != nil {
		p.SEO = *u.SEO
	}
	p.UpdatedAt = time.Now()
	r.byID[id] = p
	return cloneProduct(p), nil
}

func (r *Products) Archive(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	p.Status = models.ProductStatusArchived
	p.UpdatedAt = time.Now()
	r.byID[id] = p
	return nil
}

func (r *Products) IncrementViews(_ context.Context, id primitive.ObjectID) (models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byID[id]
	if !ok {
		return models.Product{}, store.ErrNotFound
	}
	p.Views++
	r.byID[id] = p
	return cloneProduct(p), nil
}

func (r *Products) DecrementInventory(_ context.Context, id primitive.ObjectID, qty int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byID[id]
	if !ok || !p.Inventory.TrackQuantity || p.Inventory.Quantity < qty {
		return false, nil
	}
	p.Inventory.Quantity -= qty
	p.SalesCount += qty
	p.UpdatedAt = time.Now()
	r.byID[id] = p
	return true, nil
}
