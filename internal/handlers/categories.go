package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/catalog"
	"storefront/internal/models"
)

type CategoryCreateRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Slug        string `json:"slug" binding:"omitempty,max=100"`
	Description string `json:"description" binding:"max=500"`
	Image       string `json:"image" binding:"omitempty,url"`
	Parent      string `json:"parent" binding:"omitempty,objectid"`
	IsActive    *bool  `json:"isActive"`
}

type CategoryUpdateRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Slug        *string `json:"slug" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
	Image       *string `json:"image" binding:"omitempty,url"`
	// Parent accepts an id, or an empty string to detach the category.
	Parent   *string `json:"parent"`
	IsActive *bool   `json:"isActive"`
}

func (r CategoryCreateRequest) toCategory() models.Category {
	category := models.Category{
		Name:        r.Name,
		Slug:        r.Slug,
		Description: r.Description,
		Image:       r.Image,
		IsActive:    true,
	}
	if r.IsActive != nil {
		category.IsActive = *r.IsActive
	}
	if r.Parent != "" {
		id, _ := primitive.ObjectIDFromHex(r.Parent)
		category.ParentID = &id
	}
	return category
}

func (r CategoryUpdateRequest) toUpdate() (models.CategoryUpdate, bool) {
	u := models.CategoryUpdate{
		Name:        r.Name,
		Slug:        r.Slug,
		Description: r.Description,
		Image:       r.Image,
		IsActive:    r.IsActive,
	}
	if r.Parent != nil {
		if *r.Parent == "" {
			u.ClearParent = true
		} else {
			id, err := primitive.ObjectIDFromHex(*r.Parent)
			if err != nil {
				return models.CategoryUpdate{}, false
			}
			u.ParentID = &id
		}
	}
	return u, true
}

func ListCategories(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /categories"
		defer handlePanic(c, route)

		categories, err := svc.ListCategories(c.Request.Context())
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":    true,
			"count":      len(categories),
			"categories": categories,
		})
	}
}

func GetCategory(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /categories/:id"
		defer handlePanic(c, route)

		id, ok := parseObjectIDParam(c, route, "id", "category")
		if !ok {
			return
		}
		detail, err := svc.GetCategory(c.Request.Context(), id)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "category": detail})
	}
}

func CreateCategory(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /categories"
		defer handlePanic(c, route)

		var req CategoryCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		category, err := svc.CreateCategory(c.Request.Context(), req.toCategory())
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"success":  true,
			"category": category,
			"message":  "Category created successfully",
		})
	}
}

func UpdateCategory(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /categories/:id"
		defer handlePanic(c, route)

		id, ok := parseObjectIDParam(c, route, "id", "category")
		if !ok {
			return
		}
		var req CategoryUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		update, ok := req.toUpdate()
		if !ok {
			respondWithError(c, http.StatusBadRequest, route, "invalid parent id")
			return
		}

		category, err := svc.UpdateCategory(c.Request.Context(), id, update)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"category": category,
			"message":  "Category updated successfully",
		})
	}
}

func DeleteCategory(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /categories/:id"
		defer handlePanic(c, route)

		id, ok := parseObjectIDParam(c, route, "id", "category")
		if !ok {
			return
		}
		if err := svc.DeleteCategory(c.Request.Context(), id); err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Category deactivated successfully"})
	}
}
