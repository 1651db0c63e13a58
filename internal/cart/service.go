// Package cart implements the per-user shopping cart.
package cart

import (
	"context"
	"errors"
	"fmt"
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
	msgItemNotFound    = "Item not found in cart"
)

type Service struct {
	carts    store.CartRepository
	products store.ProductRepository
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(repos store.Repositories, logger *zap.Logger) *Service {
	return &Service{
		carts:    repos.Carts,
		products: repos.Products,
		logger:   logger.Named("cart"),
		now:      time.Now,
	}
}

// ProductSummary is the product data embedded in cart lines.
type ProductSummary struct {
	ID      primitive.ObjectID `json:"id"`
	Name    string             `json:"name"`
	Price   float64            `json:"price"`
	Image   string             `json:"image,omitempty"`
	Status  string             `json:"status"`
	InStock bool               `json:"inStock"`
}

type Line struct {
	models.CartItem
	Product   *ProductSummary `json:"product"`
	LineTotal float64         `json:"lineTotal"`
}

type View struct {
	ID        primitive.ObjectID `json:"id"`
	Items     []Line             `json:"items"`
	ItemCount int                `json:"itemCount"`
	Total     float64            `json:"total"`
}

func (s *Service) Get(ctx context.Context, userID primitive.ObjectID) (View, error) {
	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return View{}, apperror.Internal("db error", err)
	}
	return s.view(ctx, c)
}

// Add puts qty units of a product in the cart. An existing line with the same
// product and variant is increased instead of duplicated.
func (s *Service) Add(ctx context.Context, userID, productID primitive.ObjectID, qty int, variant map[string]string) (View, error) {
	if qty < 1 {
		return View{}, apperror.Validation("quantity must be at least 1")
	}
	product, err := s.products.FindByID(ctx, productID)
	if errors.Is(err, store.ErrNotFound) {
		return View{}, apperror.NotFound(msgProductNotFound)
	}
	if err != nil {
		return View{}, apperror.Internal("db error", err)
	}
	if product.Status != models.ProductStatusActive {
		return View{}, apperror.Validation("Product is not available")
	}

	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return View{}, apperror.Internal("db error", err)
	}

	items := c.Items
	idx := -1
	for i, item := range items {
		if item.ProductID == productID && models.SameVariant(item.Variant, variant) {
			idx = i
			break
		}
	}
	requested := qty
	if idx >= 0 {
		requested += items[idx].Quantity
	}
	if !pricing.HasStock(product, requested) {
		return View{}, stockError(product, requested)
	}

	if idx >= 0 {
		items[idx].Quantity = requested
	} else {
		items = append(items, models.CartItem{
			ID:        primitive.NewObjectID(),
			ProductID: productID,
			Quantity:  qty,
			Variant:   variant,
			AddedAt:   s.now(),
		})
	}
	return s.save(ctx, userID, items)
}

func (s *Service) Update(ctx context.Context, userID, itemID primitive.ObjectID, qty int) (View, error) {
	if qty < 1 {
		return View{}, apperror.Validation("quantity must be at least 1")
	}
	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return View{}, apperror.Internal("db error", err)
	}
	idx := findItem(c.Items, itemID)
	if idx < 0 {
		return View{}, apperror.NotFound(msgItemNotFound)
	}

	product, err := s.products.FindByID(ctx, c.Items[idx].ProductID)
	if errors.Is(err, store.ErrNotFound) {
		return View{}, apperror.NotFound(msgProductNotFound)
	}
	if err != nil {
		return View{}, apperror.Internal("db error", err)
	}
	if !pricing.HasStock(product, qty) {
		return View{}, stockError(product, qty)
	}

	c.Items[idx].Quantity = qty
	return s.save(ctx, userID, c.Items)
}

func (s *Service) Remove(ctx context.Context, userID, itemID primitive.ObjectID) (View, error) {
	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return View{}, apperror.Internal("db error", err)
	}
	idx := findItem(c.Items, itemID)
	if idx < 0 {
		return View{}, apperror.NotFound(msgItemNotFound)
	}
	items := append(c.Items[:idx:idx], c.Items[idx+1:]...)
	return s.save(ctx, userID, items)
}

func (s *Service) Clear(ctx context.Context, userID primitive.ObjectID) (View, error) {
	if err := s.carts.Clear(ctx, userID); err != nil {
		return View{}, apperror.Internal("db error", err)
	}
	return s.Get(ctx, userID)
}

func (s *Service) save(ctx context.Context, userID primitive.ObjectID, items []models.CartItem) (View, error) {
	c, err := s.carts.SaveItems(ctx, userID, items)
	if err != nil {
		return View{}, apperror.Internal("db error", err)
	}
	return s.view(ctx, c)
}

// view joins cart lines with current product data. Lines whose product has
// disappeared are kept with a nil summary and count nothing toward the total.
func (s *Service) view(ctx context.Context, c models.Cart) (View, error) {
	ids := make([]primitive.ObjectID, 0, len(c.Items))
	for _, item := range c.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return View{}, apperror.Internal("db error", err)
	}

	v := View{ID: c.ID, Items: make([]Line, 0, len(c.Items))}
	lines := make([]pricing.Line, 0, len(c.Items))
	for _, item := range c.Items {
		line := Line{CartItem: item}
		if p, ok := products[item.ProductID]; ok {
			pricing.Decorate(&p)
			line.Product = summarize(p)
			line.LineTotal = pricing.LineTotal(p.Price, item.Quantity)
			lines = append(lines, pricing.Line{Price: p.Price, Quantity: item.Quantity})
		}
		v.ItemCount += item.Quantity
		v.Items = append(v.Items, line)
	}
	v.Total = pricing.ComputeTotals(lines).Subtotal
	return v, nil
}

func summarize(p models.Product) *ProductSummary {
	summary := &ProductSummary{
		ID:      p.ID,
		Name:    p.Name,
		Price:   p.Price,
		Status:  p.Status,
		InStock: p.InStock,
	}
	if len(p.Images) > 0 {
		summary.Image = p.Images[0]
	}
	return summary
}

func findItem(items []models.CartItem, id primitive.ObjectID) int {
	for i, item := range items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func stockError(p models.Product, requested int) *apperror.Error {
	return apperror.Validation(fmt.Sprintf("Only %d items available", p.Inventory.Quantity)).
		With("productId", p.ID.Hex()).
		With("available", p.Inventory.Quantity).
		With("requested", requested)
}
