package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/cart"
)

type addToCartRequest struct {
	ProductID string            `json:"productId" binding:"required,objectid"`
	Quantity  int               `json:"quantity" binding:"required,min=1"`
	Variant   map[string]string `json:"variant"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

func respondCart(c *gin.Context, view cart.View, message string) {
	body := gin.H{"success": true, "cart": view}
	if message != "" {
		body["message"] = message
	}
	c.JSON(http.StatusOK, body)
}

func GetCart(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /cart"
		defer handlePanic(c, route)

		user, ok := currentUser(c, route)
		if !ok {
			return
		}
		view, err := svc.Get(c.Request.Context(), user.ID)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		respondCart(c, view, "")
	}
}

func AddToCart(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /cart"
		defer handlePanic(c, route)

		user, ok := currentUser(c, route)
		if !ok {
			return
		}
		var req addToCartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		productID, _ := primitive.ObjectIDFromHex(req.ProductID)

		view, err := svc.Add(c.Request.Context(), user.ID, productID, req.Quantity, req.Variant)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		respondCart(c, view, "Item added to cart")
	}
}

func UpdateCartItem(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /cart/:itemId"
		defer handlePanic(c, route)

		user, ok := currentUser(c, route)
		if !ok {
			return
		}
		itemID, ok := parseObjectIDParam(c, route, "itemId", "item")
		if !ok {
			return
		}
		var req updateCartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		view, err := svc.Update(c.Request.Context(), user.ID, itemID, req.Quantity)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		respondCart(c, view, "Cart updated")
	}
}

func RemoveCartItem(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /cart/:itemId"
		defer handlePanic(c, route)

		user, ok := currentUser(c, route)
		if !ok {
			return
		}
		itemID, ok := parseObjectIDParam(c, route, "itemId", "item")
		if !ok {
			return
		}

		view, err := svc.Remove(c.Request.Context(), user.ID, itemID)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		respondCart(c, view, "Item removed from cart")
	}
}

func ClearCart(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /cart"
		defer handlePanic(c, route)

		user, ok := currentUser(c, route)
		if !ok {
			return
		}
		view, err := svc.Clear(c.Request.Context(), user.ID)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		respondCart(c, view, "Cart cleared")
	}
}
