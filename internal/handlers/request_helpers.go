package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"storefront/internal/apperror"
	"storefront/internal/logging"
	"storefront/internal/middleware"
	"storefront/internal/models"
)

func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		logging.FromContext(c.Request.Context()).Error("panic recovered",
			zap.String("route", route),
			zap.Any("panic", r),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func respondWithError(c *gin.Context, status int, route string, message string) {
	logging.FromContext(c.Request.Context()).Info("returning error",
		zap.String("route", route),
		zap.Int("status", status),
		zap.String("error", message),
	)
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// respondServiceError maps a service error to its HTTP response. Details of
// unclassified errors are only exposed while gin runs in debug mode.
func respondServiceError(c *gin.Context, route string, err error) {
	appErr, ok := apperror.As(err)
	if !ok {
		appErr = apperror.Internal("internal server error", err)
	}

	status := appErr.Status()
	body := gin.H{"error": appErr.Message}
	for k, v := range appErr.Details {
		body[k] = v
	}

	if status >= http.StatusInternalServerError {
		logging.FromContext(c.Request.Context()).Error("request failed",
			zap.String("route", route),
			zap.Error(err),
		)
		if gin.IsDebugging() && appErr.Err != nil {
			body["details"] = appErr.Err.Error()
		}
	} else {
		logging.FromContext(c.Request.Context()).Info("returning error",
			zap.String("route", route),
			zap.Int("status", status),
			zap.String("error", appErr.Message),
		)
	}
	c.AbortWithStatusJSON(status, body)
}

func parseObjectIDParam(c *gin.Context, route, name, label string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(c.Param(name)))
	if err != nil {
		respondWithError(c, http.StatusBadRequest, route, "invalid "+label+" id")
		return primitive.NilObjectID, false
	}
	return id, true
}

// currentUser returns the user loaded by middleware.Protect.
func currentUser(c *gin.Context, route string) (models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
		return models.User{}, false
	}
	return user, true
}

// Pinger reports whether the database is reachable.
type Pinger func(ctx context.Context) error
