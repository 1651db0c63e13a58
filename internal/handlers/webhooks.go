package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/orders"
)

const maxWebhookBody = 1 << 16

// StripeWebhook passes the raw body to signature verification, so it must
// not be bound or re-encoded first.
func StripeWebhook(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /webhooks/stripe"
		defer handlePanic(c, route)

		payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid body")
			return
		}

		res, err := svc.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		body := gin.H{"received": true}
		if res.Duplicate {
			body["duplicate"] = true
		}
		c.JSON(http.StatusOK, body)
	}
}
