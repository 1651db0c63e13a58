package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/internal/users"
)

type updateRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=customer admin"`
}

type updateUserStatusRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

type addressRequest struct {
	Label     string `json:"label" binding:"max=50"`
	Street    string `json:"street" binding:"required,max=200"`
	City      string `json:"city" binding:"required,max=100"`
	State     string `json:"state" binding:"required,max=100"`
	ZipCode   string `json:"zipCode" binding:"required,max=20"`
	Country   string `json:"country" binding:"required,max=100"`
	IsDefault bool   `json:"isDefault"`
}

func (r addressRequest) toInput() users.AddressInput {
	return users.AddressInput(r)
}

func ListUsers(svc *users.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /users/admin/all"
		defer handlePanic(c, route)

		list, err := svc.List(c.Request.Context())
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "count": len(list), "users": list})
	}
}

func UpdateUserRole(svc *users.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /users/:id/role"
		defer handlePanic(c, route)

		id, ok := parseObjectIDParam(c, route, "id", "user")
		if !ok {
			return
		}
		var req updateRoleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		user, err := svc.SetRole(c.Request.Context(), id, req.Role)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"user":    toUserResponse(user),
			"message": "User role updated",
		})
	}
}

func UpdateUserStatus(svc *users.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /users/:id/status"
		defer handlePanic(c, route)

		id, ok := parseObjectIDParam(c, route, "id", "user")
		if !ok {
			return
		}
		var req updateUserStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		user, err := svc.SetActive(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
	}
}

func GetAddresses(svc *users.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /users/me/addresses"
		defer handlePanic(c, route)

		user, ok := currentUser(c, route)
		if !ok {
			return
		}
		addresses, err := svc.Addresses(c.Request.Context(), user.ID)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "addresses": addresses})
	}
}

func CreateAddress(svc *users.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /users/me/addresses"
		defer handlePanic(c, route)

		user, ok := currentUser(c, route)
		if !ok {
			return
		}
		var req addressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		address, err := svc.AddAddress(c.Request.Context(), user.ID, req.toInput())
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "address": address})
	}
}

func UpdateAddress(svc *users.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /users/me/addresses/:id"
		defer handlePanic(c, route)

		user, ok := currentUser(c, route)
		if !ok {
			return
		}
		addressID := strings.TrimSpace(c.Param("id"))
		if addressID == "" {
			respondWithError(c, http.StatusBadRequest, route, "invalid address id")
			return
		}
		var req addressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		address, err := svc.UpdateAddress(c.Request.Context(), user.ID, addressID, req.toInput())
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "address": address})
	}
}

func DeleteAddress(svc *users.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /users/me/addresses/:id"
		defer handlePanic(c, route)

		user, ok := currentUser(c, route)
		if !ok {
			return
		}
		addressID := strings.TrimSpace(c.Param("id"))
		if addressID == "" {
			respondWithError(c, http.StatusBadRequest, route, "invalid address id")
			return
		}

		if err := svc.DeleteAddress(c.Request.Context(), user.ID, addressID); err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "address deleted"})
	}
}
