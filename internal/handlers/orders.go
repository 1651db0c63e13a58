package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/internal/models"
	"storefront/internal/orders"
)

type shippingAddressRequest struct {
	Street  string `json:"street" binding:"required,max=200"`
	City    string `json:"city" binding:"required,max=100"`
	State   string `json:"state" binding:"required,max=100"`
	ZipCode string `json:"zipCode" binding:"required,max=20"`
	Country string `json:"country" binding:"required,max=100"`
}

type createOrderRequest struct {
	ShippingAddress shippingAddressRequest `json:"shippingAddress" binding:"required"`
	Notes           string                 `json:"notes" binding:"max=500"`
}

type confirmPaymentRequest struct {
	PaymentIntentID string `json:"paymentIntentId" binding:"required"`
}

type updateOrderStatusRequest struct {
	Status         string `json:"status" binding:"required,oneof=pending processing shipped delivered cancelled"`
	TrackingNumber string `json:"trackingNumber" binding:"max=100"`
}

func CreateOrder(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders"
		defer handlePanic(c, route)

		user, ok := currentUser(c, route)
		if !ok {
			return
		}
		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		res, err := svc.Create(c.Request.Context(), user.ID, orders.CreateInput{
			ShippingAddress: models.ShippingAddress(req.ShippingAddress),
			Notes:           req.Notes,
		})
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		var clientSecret *string
		if res.ClientSecret != "" {
			clientSecret = &res.ClientSecret
		}
		c.JSON(http.StatusCreated, gin.H{
			"success":      true,
			"order":        res.Order,
			"clientSecret": clientSecret,
			"message":      res.Message,
		})
	}
}

func ConfirmPayment(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders/:id/confirm-payment"
		defer handlePanic(c, route)

		user, ok := currentUser(c, route)
		if !ok {
			return
		}
		id, ok := parseObjectIDParam(c, route, "id", "order")
		if !ok {
			return
		}
		var req confirmPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		order, err := svc.ConfirmPayment(c.Request.Context(), user, id, req.PaymentIntentID)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"order":   order,
			"message": "Payment confirmed. Order is being processed.",
		})
	}
}

func ListMyOrders(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders"
		defer handlePanic(c, route)

		user, ok := currentUser(c, route)
		if !ok {
			return
		}
		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"), orders.DefaultListLimit)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		result, err := svc.ListMine(c.Request.Context(), user.ID, page, limit)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		respondOrderPage(c, result)
	}
}

func GetOrder(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders/:id"
		defer handlePanic(c, route)

		user, ok := currentUser(c, route)
		if !ok {
			return
		}
		id, ok := parseObjectIDParam(c, route, "id", "order")
		if !ok {
			return
		}

		order, err := svc.Get(c.Request.Context(), user, id)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
	}
}

func UpdateOrderStatus(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /orders/:id/status"
		defer handlePanic(c, route)

		id, ok := parseObjectIDParam(c, route, "id", "order")
		if !ok {
			return
		}
		var req updateOrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		order, err := svc.UpdateStatus(c.Request.Context(), id, req.Status, req.TrackingNumber)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"order":   order,
			"message": "Order status updated",
		})
	}
}

func CancelOrder(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /orders/:id"
		defer handlePanic(c, route)

		user, ok := currentUser(c, route)
		if !ok {
			return
		}
		id, ok := parseObjectIDParam(c, route, "id", "order")
		if !ok {
			return
		}

		if err := svc.Cancel(c.Request.Context(), user, id); err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Order cancelled successfully"})
	}
}

func ListAllOrders(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders/admin/all"
		defer handlePanic(c, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"), orders.DefaultListLimit)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		result, err := svc.ListAll(c.Request.Context(), models.OrderFilter{
			Status:        strings.TrimSpace(c.Query("status")),
			PaymentStatus: strings.TrimSpace(c.Query("paymentStatus")),
			Page:          page,
			Limit:         limit,
		})
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		respondOrderPage(c, result)
	}
}

func respondOrderPage(c *gin.Context, p orders.Page) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   p.Count,
		"total":   p.Total,
		"page":    p.Page,
		"pages":   p.Pages,
		"orders":  p.Orders,
	})
}
