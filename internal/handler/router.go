package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/catalog_api/internal/middleware"
)

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health            *HealthHandler
	Product           *ProductHandler
	ProductManagement *ProductManagementHandler
	Category          *CategoryHandler
	Auth              *AuthHandler
	SSE               *SSEHandler
}

// RouteDeps carries the middleware and extra endpoints mounted by SetupRoutes.
type RouteDeps struct {
	JWT          *middleware.JWTMiddleware
	LoginLimiter *middleware.FailedLoginLimiter
	Metrics      http.Handler
}

// SetupRoutes registers all routes.
func SetupRoutes(router *gin.Engine, handlers *Handlers, deps RouteDeps) {
	router.GET("/health", handlers.Health.GetHealth)
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	v1 := router.Group("/api/v1")

	auth := v1.Group("/auth")
	if deps.LoginLimiter != nil {
		auth.POST("/login", middleware.LoginRateLimit(deps.LoginLimiter), handlers.Auth.Login)
	} else {
		auth.POST("/login", handlers.Auth.Login)
	}

	requireAdmin := deps.JWT.Handle()

	products := v1.Group("/products")
	{
		products.GET("", handlers.Product.ListProducts)
		products.GET("/filter", handlers.Product.FilterProducts)
		products.GET("/featured", handlers.Product.GetFeaturedProducts)
		products.GET("/low-stock", handlers.Product.GetLowStockProducts)
		products.GET("/sku/:sku", handlers.Product.GetProductBySKU)
		products.GET("/:id", handlers.Product.GetProduct)

		products.POST("", requireAdmin, handlers.ProductManagement.CreateProduct)
		products.PUT("/:id", requireAdmin, handlers.ProductManagement.UpdateProduct)
		products.PATCH("/:id/status", requireAdmin, handlers.ProductManagement.UpdateStatus)
		products.DELETE("/:id", requireAdmin, handlers.ProductManagement.DeleteProduct)
	}

	categories := v1.Group("/categories")
	{
		categories.GET("", handlers.Category.ListCategories)
		categories.GET("/:id", handlers.Category.GetCategory)
		categories.POST("", requireAdmin, handlers.Category.CreateCategory)
		categories.PUT("/:id", requireAdmin, handlers.Category.UpdateCategory)
		categories.DELETE("/:id", requireAdmin, handlers.Category.DeleteCategory)
	}

	if handlers.SSE != nil {
		v1.GET("/events", deps.JWT.HandleQueryToken(), handlers.SSE.Stream)
	}
}
