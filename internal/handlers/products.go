package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/catalog"
	"storefront/internal/models"
)

const defaultProductLimit = 12

type InventoryRequest struct {
	Quantity          *int  `json:"quantity" binding:"omitempty,gte=0"`
	LowStockThreshold *int  `json:"lowStockThreshold" binding:"omitempty,gte=0"`
	TrackQuantity     *bool `json:"trackQuantity"`
}

type CreateProductRequest struct {
	Name           string           `json:"name" binding:"required,max=200"`
	Description    string           `json:"description" binding:"required,max=2000"`
	Price          *float64         `json:"price" binding:"required,gte=0"`
	CompareAtPrice float64          `json:"compareAtPrice" binding:"gte=0"`
	SKU            string           `json:"sku" binding:"required,max=64"`
	Category       string           `json:"category" binding:"required,objectid"`
	Images         []string         `json:"images" binding:"omitempty,dive,url"`
	Variants       []models.Variant `json:"variants"`
	Inventory      InventoryRequest `json:"inventory"`
	Status         string           `json:"status" binding:"omitempty,oneof=active draft archived"`
	Featured       bool             `json:"featured"`
	Tags           []string         `json:"tags"`
	SEO            models.SEO       `json:"seo"`
}

type UpdateProductRequest struct {
	Name           *string           `json:"name" binding:"omitempty,min=1,max=200"`
	Description    *string           `json:"description" binding:"omitempty,max=2000"`
	Price          *float64          `json:"price" binding:"omitempty,gte=0"`
	CompareAtPrice *float64          `json:"compareAtPrice" binding:"omitempty,gte=0"`
	SKU            *string           `json:"sku" binding:"omitempty,min=1,max=64"`
	Category       *string           `json:"category" binding:"omitempty,objectid"`
	Images         *[]string         `json:"images"`
	Variants       *[]models.Variant `json:"variants"`
	Inventory      *InventoryRequest `json:"inventory"`
	Status         *string           `json:"status" binding:"omitempty,oneof=active draft archived"`
	Featured       *bool             `json:"featured"`
	Tags           *[]string         `json:"tags"`
	SEO            *models.SEO       `json:"seo"`
}

func (r CreateProductRequest) toProduct() models.Product {
	categoryID, _ := primitive.ObjectIDFromHex(r.Category)
	inventory := models.Inventory{
		LowStockThreshold: models.DefaultLowStockThreshold,
		TrackQuantity:     true,
	}
	if r.Inventory.Quantity != nil {
		inventory.Quantity = *r.Inventory.Quantity
	}
	if r.Inventory.LowStockThreshold != nil {
		inventory.LowStockThreshold = *r.Inventory.LowStockThreshold
	}
	if r.Inventory.TrackQuantity != nil {
		inventory.TrackQuantity = *r.Inventory.TrackQuantity
	}
	return models.Product{
		Name:           r.Name,
		Description:    strings.TrimSpace(r.Description),
		Price:          *r.Price,
		CompareAtPrice: r.CompareAtPrice,
		SKU:            r.SKU,
		CategoryID:     categoryID,
		Images:         r.Images,
		Variants:       r.Variants,
		Inventory:      inventory,
		Status:         r.Status,
		Featured:       r.Featured,
		Tags:           models.StringList(r.Tags),
		SEO:            r.SEO,
	}
}

func (r UpdateProductRequest) toUpdate() (models.ProductUpdate, *catalog.InventoryPatch) {
	u := models.ProductUpdate{
		Name:           r.Name,
		Description:    r.Description,
		Price:          r.Price,
		CompareAtPrice: r.CompareAtPrice,
		SKU:            r.SKU,
		Images:         r.Images,
		Variants:       r.Variants,
		Status:         r.Status,
		Featured:       r.Featured,
		Tags:           r.Tags,
		SEO:            r.SEO,
	}
	if r.Category != nil {
		id, _ := primitive.ObjectIDFromHex(*r.Category)
		u.CategoryID = &id
	}
	var patch *catalog.InventoryPatch
	if r.Inventory != nil {
		patch = &catalog.InventoryPatch{
			Quantity:          r.Inventory.Quantity,
			LowStockThreshold: r.Inventory.LowStockThreshold,
			TrackQuantity:     r.Inventory.TrackQuantity,
		}
	}
	return u, patch
}

// productFilterFromQuery reads the listing filters from the query string.
func productFilterFromQuery(c *gin.Context) (models.ProductFilter, string) {
	page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"), defaultProductLimit)
	if err != nil {
		return models.ProductFilter{}, err.Error()
	}
	filter := models.ProductFilter{
		Search: strings.TrimSpace(c.Query("search")),
		Status: strings.TrimSpace(c.Query("status")),
		Page:   page,
		Limit:  limit,
	}
	if filter.Status != "" && !catalog.ValidProductStatus(filter.Status) {
		return models.ProductFilter{}, "invalid status"
	}
	if raw := strings.TrimSpace(c.Query("category")); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return models.ProductFilter{}, "invalid category id"
		}
		filter.CategoryID = &id
	}
	for _, p := range []struct {
		key string
		dst **float64
	}{
		{"minPrice", &filter.MinPrice},
		{"maxPrice", &filter.MaxPrice},
	} {
		raw := strings.TrimSpace(c.Query(p.key))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			return models.ProductFilter{}, "invalid " + p.key
		}
		*p.dst = &v
	}
	if raw := strings.TrimSpace(c.Query("featured")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return models.ProductFilter{}, "invalid featured flag"
		}
		filter.Featured = &v
	}
	return filter, ""
}

func ListProducts(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products"
		defer handlePanic(c, route)

		filter, problem := productFilterFromQuery(c)
		if problem != "" {
			respondWithError(c, http.StatusBadRequest, route, problem)
			return
		}

		page, err := svc.ListProducts(c.Request.Context(), filter)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"count":    page.Count,
			"total":    page.Total,
			"page":     page.Page,
			"pages":    page.Pages,
			"products": page.Products,
		})
	}
}

func GetProduct(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products/:id"
		defer handlePanic(c, route)

		id, ok := parseObjectIDParam(c, route, "id", "product")
		if !ok {
			return
		}
		product, err := svc.GetProduct(c.Request.Context(), id)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "product": product})
	}
}

func CreateProduct(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /products"
		defer handlePanic(c, route)

		var req CreateProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		product, err := svc.CreateProduct(c.Request.Context(), req.toProduct())
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"product": product,
			"message": "Product created successfully",
		})
	}
}

func UpdateProduct(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /products/:id"
		defer handlePanic(c, route)

		id, ok := parseObjectIDParam(c, route, "id", "product")
		if !ok {
			return
		}
		var req UpdateProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		update, inventory := req.toUpdate()
		product, err := svc.UpdateProduct(c.Request.Context(), id, update, inventory)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"product": product,
			"message": "Product updated successfully",
		})
	}
}

func DeleteProduct(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /products/:id"
		defer handlePanic(c, route)

		id, ok := parseObjectIDParam(c, route, "id", "product")
		if !ok {
			return
		}
		if err := svc.DeleteProduct(c.Request.Context(), id); err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Product archived successfully"})
	}
}
