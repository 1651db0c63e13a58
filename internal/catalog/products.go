// Package catalog manages products and categories.
package catalog

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"storefront/internal/apperror"
	"storefront/internal/models"
	"storefront/internal/pricing"
	"storefront/internal/store"
)

const (
	msgProductNotFound = "Product not found"
	msgDuplicateSKU    = "Product with this SKU already exists"
)

type Service struct {
	products   store.ProductRepository
	categories store.CategoryRepository
	logger     *zap.Logger
	now        func() time.Time
}

func NewService(repos store.Repositories, logger *zap.Logger) *Service {
	return &Service{
		products:   repos.Products,
		categories: repos.Categories,
		logger:     logger.Named("catalog"),
		now:        time.Now,
	}
}

type ProductPage struct {
	Products []models.Product `json:"products"`
	Count    int              `json:"count"`
	Total    int64            `json:"total"`
	Page     int64            `json:"page"`
	Pages    int64            `json:"pages"`
}

func ValidProductStatus(status string) bool {
	switch status {
	case models.ProductStatusActive, models.ProductStatusDraft, models.ProductStatusArchived:
		return true
	}
	return false
}

func NormalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

func (s *Service) ListProducts(ctx context.Context, filter models.ProductFilter) (ProductPage, error) {
	if filter.Status == "" {
		filter.Status = models.ProductStatusActive
	}
	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return ProductPage{}, apperror.Internal("db error", err)
	}
	for i := range products {
		pricing.Decorate(&products[i])
	}

	pages := int64(0)
	if total > 0 && filter.Limit > 0 {
		pages = int64(math.Ceil(float64(total) / float64(filter.Limit)))
	}
	return ProductPage{
		Products: products,
		Count:    len(products),
		Total:    total,
		Page:     filter.Page,
		Pages:    pages,
	}, nil
}

// GetProduct returns a product and counts the view.
func (s *Service) GetProduct(ctx context.Context, id primitive.ObjectID) (models.Product, error) {
	product, err := s.products.IncrementViews(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.Product{}, apperror.NotFound(msgProductNotFound)
	}
	if err != nil {
		return models.Product{}, apperror.Internal("db error", err)
	}
	pricing.Decorate(&product)
	return product, nil
}

func (s *Service) CreateProduct(ctx context.Context, p models.Product) (models.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.SKU = NormalizeSKU(p.SKU)
	p.Tags = models.NormalizeTags(p.Tags)
	if p.Name == "" || p.SKU == "" {
		return models.Product{}, apperror.Validation("name and sku are required")
	}
	if p.Status == "" {
		p.Status = models.ProductStatusDraft
	}
	if !ValidProductStatus(p.Status) {
		return models.Product{}, apperror.Validation("status is invalid")
	}
	if err := pricing.ValidatePricing(p.Price, p.CompareAtPrice); err != nil {
		return models.Product{}, apperror.Validation(err.Error())
	}
	if err := s.requireCategory(ctx, p.CategoryID); err != nil {
		return models.Product{}, err
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.Variants == nil {
		p.Variants = []models.Variant{}
	}

	now := s.now()
	p.ID = primitive.NilObjectID
	p.SalesCount = 0
	p.Views = 0
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := s.products.Create(ctx, &p); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return models.Product{}, apperror.Conflict(msgDuplicateSKU)
		}
		return models.Product{}, apperror.Internal("db error", err)
	}
	s.logger.Info("product created", zap.String("product_id", p.ID.Hex()), zap.String("sku", p.SKU))
	pricing.Decorate(&p)
	return p, nil
}

// InventoryPatch changes individual inventory settings; nil fields are kept.
type InventoryPatch struct {
	Quantity          *int
	LowStockThreshold *int
	TrackQuantity     *bool
}

func (p InventoryPatch) apply(inv models.Inventory) models.Inventory {
	if p.Quantity != nil {
		inv.Quantity = *p.Quantity
	}
	if p.LowStockThreshold != nil {
		inv.LowStockThreshold = *p.LowStockThreshold
	}
	if p.TrackQuantity != nil {
		inv.TrackQuantity = *p.TrackQuantity
	}
	return inv
}

func (s *Service) UpdateProduct(ctx context.Context, id primitive.ObjectID, u models.ProductUpdate, inventory *InventoryPatch) (models.Product, error) {
	existing, err := s.products.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.Product{}, apperror.NotFound(msgProductNotFound)
	}
	if err != nil {
		return models.Product{}, apperror.Internal("db error", err)
	}

	if u.Price != nil || u.CompareAtPrice != nil {
		resolved, err := pricing.ResolvePricingUpdate(existing.Price, existing.CompareAtPrice, pricing.CompareAtInput{
			Price:          u.Price,
			CompareAtPrice: u.CompareAtPrice,
		})
		if err != nil {
			return models.Product{}, apperror.Validation(err.Error())
		}
		u.Price = &resolved.Price
		u.CompareAtPrice = &resolved.CompareAtPrice
	}
	if inventory != nil {
		merged := inventory.apply(existing.Inventory)
		if merged.Quantity < 0 || merged.LowStockThreshold < 0 {
			return models.Product{}, apperror.Validation("inventory values must not be negative")
		}
		u.Inventory = &merged
	}
	if u.Status != nil && !ValidProductStatus(*u.Status) {
		return models.Product{}, apperror.Validation("status is invalid")
	}
	if u.SKU != nil {
		sku := NormalizeSKU(*u.SKU)
		if sku == "" {
			return models.Product{}, apperror.Validation("sku is invalid")
		}
		u.SKU = &sku
	}
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return models.Product{}, apperror.Validation("name is invalid")
		}
		u.Name = &name
	}
	if u.CategoryID != nil {
		if err := s.requireCategory(ctx, *u.CategoryID); err != nil {
			return models.Product{}, err
		}
	}

	updated, err := s.products.Update(ctx, id, u)
	if errors.Is(err, store.ErrDuplicate) {
		return models.Product{}, apperror.Conflict(msgDuplicateSKU)
	}
	if errors.Is(err, store.ErrNotFound) {
		return models.Product{}, apperror.NotFound(msgProductNotFound)
	}
	if err != nil {
		return models.Product{}, apperror.Internal("db error", err)
	}
	pricing.Decorate(&updated)
	return updated, nil
}

// DeleteProduct archives the product; order snapshots keep referencing it.
func (s *Service) DeleteProduct(ctx context.Context, id primitive.ObjectID) error {
	err := s.products.Archive(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return apperror.NotFound(msgProductNotFound)
	}
	if err != nil {
		return apperror.Internal("db error", err)
	}
	s.logger.Info("product archived", zap.String("product_id", id.Hex()))
	return nil
}

func (s *Service) requireCategory(ctx context.Context, id primitive.ObjectID) error {
	if id.IsZero() {
		return apperror.Validation("category is required")
	}
	_, err := s.categories.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return apperror.Validation("Category not found")
	}
	if err != nil {
		return apperror.Internal("db error", err)
	}
	return nil
}
