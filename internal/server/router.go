// Package server assembles the HTTP surface.
package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"storefront/internal/auth"
	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/handlers"
	"storefront/internal/metrics"
	"storefront/internal/middleware"
	"storefront/internal/orders"
	"storefront/internal/users"
)

type Deps struct {
	Auth    *auth.Service
	Catalog *catalog.Service
	Cart    *cart.Service
	Orders  *orders.Service
	Users   *users.Service

	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Ping     handlers.Pinger

	Production    bool
	FrontendURL   string
	AuthRateLimit float64
	AuthRateBurst int
}

func corsConfig(d Deps) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if d.Production && d.FrontendURL != "" {
		cfg.AllowOrigins = []string{d.FrontendURL}
	} else {
		cfg.AllowOriginFunc = func(string) bool { return true }
	}
	return cfg
}

func NewRouter(d Deps) *gin.Engine {
	handlers.RegisterValidators()
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(middleware.Recover(), middleware.Observe(d.Logger, d.Metrics), cors.New(corsConfig(d)))

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	api.GET("/health", handlers.Health(d.Ping))

	protect := middleware.Protect(d.Auth)
	admin := middleware.AdminOnly()
	limiter := middleware.RateLimit(middleware.NewIPRateLimiter(d.AuthRateLimit, d.AuthRateBurst))

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", limiter, handlers.Register(d.Auth))
		authGroup.POST("/login", limiter, handlers.Login(d.Auth))
		authGroup.POST("/refresh", limiter, handlers.Refresh(d.Auth))
		authGroup.POST("/logout", handlers.Logout(d.Auth))
		authGroup.GET("/me", protect, handlers.Me())
	}

	products := api.Group("/products")
	{
		products.GET("", handlers.ListProducts(d.Catalog))
		products.GET("/:id", handlers.GetProduct(d.Catalog))
		products.POST("", protect, admin, handlers.CreateProduct(d.Catalog))
		products.PUT("/:id", protect, admin, handlers.UpdateProduct(d.Catalog))
		products.DELETE("/:id", protect, admin, handlers.DeleteProduct(d.Catalog))
	}

	categories := api.Group("/categories")
	{
		categories.GET("", handlers.ListCategories(d.Catalog))
		categories.GET("/:id", handlers.GetCategory(d.Catalog))
		categories.POST("", protect, admin, handlers.CreateCategory(d.Catalog))
		categories.PUT("/:id", protect, admin, handlers.UpdateCategory(d.Catalog))
		categories.DELETE("/:id", protect, admin, handlers.DeleteCategory(d.Catalog))
	}

	cartGroup := api.Group("/cart", protect)
	{
		cartGroup.GET("", handlers.GetCart(d.Cart))
		cartGroup.POST("", handlers.AddToCart(d.Cart))
		cartGroup.PUT("/:itemId", handlers.UpdateCartItem(d.Cart))
		cartGroup.DELETE("/:itemId", handlers.RemoveCartItem(d.Cart))
		cartGroup.DELETE("", handlers.ClearCart(d.Cart))
	}

	orderGroup := api.Group("/orders", protect)
	{
		orderGroup.POST("", handlers.CreateOrder(d.Orders))
		orderGroup.GET("", handlers.ListMyOrders(d.Orders))
		orderGroup.GET("/admin/all", admin, handlers.ListAllOrders(d.Orders))
		orderGroup.GET("/:id", handlers.GetOrder(d.Orders))
		orderGroup.POST("/:id/confirm-payment", handlers.ConfirmPayment(d.Orders))
		orderGroup.PUT("/:id/status", admin, handlers.UpdateOrderStatus(d.Orders))
		orderGroup.DELETE("/:id", handlers.CancelOrder(d.Orders))
	}

	userGroup := api.Group("/users", protect)
	{
		userGroup.GET("/admin/all", admin, handlers.ListUsers(d.Users))
		userGroup.PUT("/:id/role", admin, handlers.UpdateUserRole(d.Users))
		userGroup.PUT("/:id/status", admin, handlers.UpdateUserStatus(d.Users))
		userGroup.GET("/me/addresses", handlers.GetAddresses(d.Users))
		userGroup.POST("/me/addresses", handlers.CreateAddress(d.Users))
		userGroup.PUT("/me/addresses/:id", handlers.UpdateAddress(d.Users))
		userGroup.DELETE("/me/addresses/:id", handlers.DeleteAddress(d.Users))
	}

	api.POST("/webhooks/stripe", handlers.StripeWebhook(d.Orders))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	})
	return r
}
