package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/apperror"
	"storefront/internal/auth"
	"storefront/internal/logging"
	"storefront/internal/models"
)

const userKey = "currentUser"

// Authenticator resolves a bearer token to an active user.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (models.User, error)
}

// Protect requires a valid bearer token and loads the user into the context.
func Protect(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := auth.BearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authorized, no token"})
			return
		}

		user, err := authn.Authenticate(c.Request.Context(), raw)
		if err != nil {
			status, message := http.StatusUnauthorized, "Not authorized, token failed"
			if appErr, ok := apperror.As(err); ok {
				status, message = appErr.Status(), appErr.Message
			}
			if status >= http.StatusInternalServerError {
				logging.FromContext(c.Request.Context()).Error("authentication failed", zap.Error(err))
				message = "internal server error"
			}
			c.AbortWithStatusJSON(status, gin.H{"error": message})
			return
		}

		c.Set(userKey, user)
		ctx := logging.WithContext(c.Request.Context(),
			logging.FromContext(c.Request.Context()).With(zap.String("user_id", user.ID.Hex())))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// AdminOnly must run after Protect.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok || !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Not authorized as admin"})
			return
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := v.(models.User)
	return user, ok
}
