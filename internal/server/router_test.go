package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storefront/internal/auth"
	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/metrics"
	"storefront/internal/models"
	"storefront/internal/orders"
	"storefront/internal/payment"
	"storefront/internal/payment/paymenttest"
	"storefront/internal/store"
	"storefront/internal/store/memstore"
	"storefront/internal/users"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "Admin123"
)

type testServer struct {
	t       *testing.T
	router  *gin.Engine
	repos   store.Repositories
	gateway *paymenttest.Gateway
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repos := memstore.New()
	gateway := paymenttest.New()
	logger := zap.NewNop()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	authService := auth.NewService(repos, auth.Config{
		Secret:     "test-secret",
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
	}, logger)
	require.NoError(t, authService.EnsureAdmin(context.Background(), adminEmail, adminPassword))

	router := NewRouter(Deps{
		Auth:    authService,
		Catalog: catalog.NewService(repos, logger),
		Cart:    cart.NewService(repos, logger),
		Orders: orders.NewService(orders.Deps{
			Repos:   repos,
			Gateway: gateway,
			Metrics: m,
			Logger:  logger,
		}),
		Users:         users.NewService(repos, logger),
		Logger:        logger,
		Metrics:       m,
		Gatherer:      reg,
		AuthRateLimit: 1000,
		AuthRateBurst: 1000,
	})
	return &testServer{t: t, router: router, repos: repos, gateway: gateway}
}

func (s *testServer) do(method, path, token string, body any) (int, map[string]any) {
	s.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec.Code, out
}

func (s *testServer) login(email, password string) string {
	s.t.Helper()
	code, body := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(s.t, http.StatusOK, code, body)
	return body["token"].(string)
}

func (s *testServer) register(name, email string) string {
	s.t.Helper()
	code, body := s.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"name": name, "email": email, "password": "Secret123",
	})
	require.Equal(s.t, http.StatusCreated, code, body)
	return body["token"].(string)
}

// seedProduct creates a category and an active tracked product through the API.
func (s *testServer) seedProduct(adminToken string, price float64, qty int) string {
	s.t.Helper()
	code, body := s.do(http.MethodPost, "/api/categories", adminToken, gin.H{"name": "Home Goods"})
	require.Equal(s.t, http.StatusCreated, code, body)
	categoryID := body["category"].(map[string]any)["id"].(string)

	code, body = s.do(http.MethodPost, "/api/products", adminToken, gin.H{
		"name":        "Desk Lamp",
		"description": "Warm light",
		"price":       price,
		"sku":         "lamp-1",
		"category":    categoryID,
		"status":      models.ProductStatusActive,
		"inventory":   gin.H{"quantity": qty},
	})
	require.Equal(s.t, http.StatusCreated, code, body)
	return body["product"].(map[string]any)["id"].(string)
}

var shipping = gin.H{
	"street": "1 Main St", "city": "Springfield", "state": "IL", "zipCode": "62701", "country": "US",
}

func TestHealthAndUnknownRoute(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	code, body = s.do(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Route not found", body["error"])
}

func TestRegisterValidationAndMe(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Ann", "email": "ann@example.com", "password": "weakpass",
	})
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation failed", body["error"])
	assert.Contains(t, body["details"], "password must contain at least one uppercase letter, one lowercase letter, and one number")

	token := s.register("Ann", "Ann@Example.com")

	code, body = s.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Ann", "email": "ann@example.com", "password": "Secret123",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "User already exists with this email", body["error"])

	code, body = s.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, code)
	user := body["user"].(map[string]any)
	assert.Equal(t, "ann@example.com", user["email"])
	assert.Equal(t, models.RoleCustomer, user["role"])
	assert.Equal(t, []any{}, user["addresses"])

	code, body = s.do(http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Not authorized, no token", body["error"])
}

func TestAdminRoutesRejectCustomers(t *testing.T) {
	s := newTestServer(t)
	token := s.register("Bob", "bob@example.com")

	code, body := s.do(http.MethodPost, "/api/categories", token, gin.H{"name": "Toys"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Not authorized as admin", body["error"])

	code, _ = s.do(http.MethodGet, "/api/orders/admin/all", token, nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestProductListingAndArchive(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(adminEmail, adminPassword)
	productID := s.seedProduct(admin, 25, 3)

	code, body := s.do(http.MethodGet, "/api/products?limit=5", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["total"])
	product := body["products"].([]any)[0].(map[string]any)
	assert.Equal(t, "LAMP-1", product["sku"])
	assert.Equal(t, true, product["inStock"])
	assert.Equal(t, true, product["isLowStock"])

	code, body = s.do(http.MethodGet, "/api/products?page=0", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(http.MethodDelete, "/api/products/"+productID, admin, nil)
	require.Equal(t, http.StatusOK, code)

	code, body = s.do(http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 0, body["total"])
}

func TestCartMergesAndChecksStock(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(adminEmail, adminPassword)
	productID := s.seedProduct(admin, 10, 4)
	token := s.register("Cat", "cat@example.com")

	code, _ := s.do(http.MethodPost, "/api/cart", token, gin.H{"productId": productID, "quantity": 1})
	require.Equal(t, http.StatusOK, code)
	code, body := s.do(http.MethodPost, "/api/cart", token, gin.H{"productId": productID, "quantity": 2})
	require.Equal(t, http.StatusOK, code)

	c := body["cart"].(map[string]any)
	assert.Len(t, c["items"], 1)
	assert.EqualValues(t, 3, c["itemCount"])
	assert.EqualValues(t, 30, c["total"])

	code, body = s.do(http.MethodPost, "/api/cart", token, gin.H{"productId": productID, "quantity": 2})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Only 4 items available", body["error"])

	code, body = s.do(http.MethodPost, "/api/cart", token, gin.H{"productId": "not-an-id", "quantity": 1})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation failed", body["error"])

	code, body = s.do(http.MethodDelete, "/api/cart", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 0, body["cart"].(map[string]any)["itemCount"])
}

func TestCheckoutConfirmTwiceAndWebhookDecrementOnce(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(adminEmail, adminPassword)
	productID := s.seedProduct(admin, 10, 5)
	token := s.register("Dee", "dee@example.com")

	code, _ := s.do(http.MethodPost, "/api/cart", token, gin.H{"productId": productID, "quantity": 3})
	require.Equal(t, http.StatusOK, code)

	code, body := s.do(http.MethodPost, "/api/orders", token, gin.H{"shippingAddress": gin.H{"street": "1 Main St"}})
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation failed", body["error"])

	code, body = s.do(http.MethodPost, "/api/orders", token, gin.H{"shippingAddress": shipping})
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, "Order created successfully", body["message"])
	assert.NotEmpty(t, body["clientSecret"])
	order := body["order"].(map[string]any)
	orderID := order["id"].(string)
	intentID := order["paymentIntentId"].(string)
	assert.EqualValues(t, 38.39, order["total"])
	assert.EqualValues(t, 3839, s.gateway.Intent(intentID).Amount)

	code, body = s.do(http.MethodPost, "/api/orders/"+orderID+"/confirm-payment", token, gin.H{"paymentIntentId": intentID})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Payment not completed. Status: requires_payment_method", body["error"])

	s.gateway.SetStatus(intentID, payment.StatusSucceeded)
	for i := 0; i < 2; i++ {
		code, body = s.do(http.MethodPost, "/api/orders/"+orderID+"/confirm-payment", token, gin.H{"paymentIntentId": intentID + "_secret_abc"})
		require.Equal(t, http.StatusOK, code, body)
		assert.Equal(t, "Payment confirmed. Order is being processed.", body["message"])
		assert.Equal(t, models.PaymentStatusPaid, body["order"].(map[string]any)["paymentStatus"])
	}

	payload := s.gateway.Payload("evt_1", payment.EventPaymentSucceeded, intentID)
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", paymenttest.Signature)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())

	code, body = s.do(http.MethodGet, "/api/products/"+productID, "", nil)
	require.Equal(t, http.StatusOK, code)
	inventory := body["product"].(map[string]any)["inventory"].(map[string]any)
	assert.EqualValues(t, 2, inventory["quantity"])

	code, body = s.do(http.MethodGet, "/api/cart", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 0, body["cart"].(map[string]any)["itemCount"])

	code, body = s.do(http.MethodDelete, "/api/orders/"+orderID, token, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Cannot cancel a paid order. Please contact support for a refund.", body["error"])

	code, body = s.do(http.MethodPut, "/api/orders/"+orderID+"/status", admin, gin.H{"status": "shipped", "trackingNumber": "TRK1"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Order status updated", body["message"])

	code, body = s.do(http.MethodGet, "/api/orders", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["count"])

	code, body = s.do(http.MethodGet, "/api/orders/admin/all?paymentStatus=paid", admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["total"])
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Stripe-Signature", "forged")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Webhook signature verification failed")
}

func TestCancelUnpaidOrderAndForeignAccess(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(adminEmail, adminPassword)
	productID := s.seedProduct(admin, 10, 5)
	owner := s.register("Eve", "eve@example.com")
	other := s.register("Fay", "fay@example.com")

	code, _ := s.do(http.MethodPost, "/api/cart", owner, gin.H{"productId": productID, "quantity": 1})
	require.Equal(t, http.StatusOK, code)
	code, body := s.do(http.MethodPost, "/api/orders", owner, gin.H{"shippingAddress": shipping})
	require.Equal(t, http.StatusCreated, code)
	orderID := body["order"].(map[string]any)["id"].(string)

	code, _ = s.do(http.MethodGet, "/api/orders/"+orderID, other, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(http.MethodGet, "/api/orders/"+orderID, admin, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(http.MethodDelete, "/api/orders/"+orderID, other, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, body = s.do(http.MethodPost, "/api/orders/"+orderID+"/confirm-payment", other, gin.H{"paymentIntentId": "pi_any"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Not authorized to access this order", body["error"])

	code, body = s.do(http.MethodDelete, "/api/orders/"+orderID, owner, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Order cancelled successfully", body["message"])

	code, _ = s.do(http.MethodGet, "/api/orders/"+orderID, owner, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(http.MethodGet, "/api/orders/not-an-id", owner, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestUserAdministrationAndAddresses(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(adminEmail, adminPassword)
	token := s.register("Gus", "gus@example.com")

	code, body := s.do(http.MethodGet, "/api/users/admin/all", admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, body["count"])

	adminUser, err := s.repos.Users.FindByEmail(context.Background(), adminEmail)
	require.NoError(t, err)

	code, body = s.do(http.MethodPut, "/api/users/"+adminUser.ID.Hex()+"/role", admin, gin.H{"role": "customer"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Cannot remove the last admin user", body["error"])

	code, _ = s.do(http.MethodPut, "/api/users/"+adminUser.ID.Hex()+"/role", admin, gin.H{"role": "owner"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = s.do(http.MethodPost, "/api/users/me/addresses", token, gin.H{
		"label": "Home", "street": "2 Elm St", "city": "Austin", "state": "TX", "zipCode": "73301", "country": "US",
	})
	require.Equal(t, http.StatusCreated, code, body)
	address := body["address"].(map[string]any)
	assert.Equal(t, true, address["isDefault"])

	code, body = s.do(http.MethodGet, "/api/users/me/addresses", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["addresses"], 1)

	code, _ = s.do(http.MethodDelete, "/api/users/me/addresses/"+address["id"].(string), token, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestRefreshAndLogout(t *testing.T) {
	s := newTestServer(t)
	code, body := s.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Hal", "email": "hal@example.com", "password": "Secret123",
	})
	require.Equal(t, http.StatusCreated, code)
	refresh := body["refreshToken"].(string)

	code, body = s.do(http.MethodPost, "/api/auth/refresh", "", gin.H{"refreshToken": refresh})
	require.Equal(t, http.StatusOK, code)
	rotated := body["refreshToken"].(string)
	assert.NotEqual(t, refresh, rotated)

	code, _ = s.do(http.MethodPost, "/api/auth/refresh", "", gin.H{"refreshToken": refresh})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(http.MethodPost, "/api/auth/logout", "", gin.H{"refreshToken": rotated})
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(http.MethodPost, "/api/auth/refresh", "", gin.H{"refreshToken": rotated})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodGet, "/api/health", "", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",route="/api/health",status="200"} 1`)
}
