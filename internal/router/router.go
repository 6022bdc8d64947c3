// internal/router/router.go
package router

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/javajoker/duka-backend/internal/config"
	"github.com/javajoker/duka-backend/internal/handlers"
	"github.com/javajoker/duka-backend/internal/middleware"
	"github.com/javajoker/duka-backend/internal/session"
	"github.com/javajoker/duka-backend/internal/utils"
)

type OrderStore interface {
	handlers.OrderLister
	handlers.OrderReleaser
}

// Services are the constructed backends the routes are served from.
type Services struct {
	Products handlers.ProductCatalog
	Storage  handlers.MediaStore
	Orders   OrderStore
	Sessions *session.Manager
	Health   map[string]handlers.Pinger
}

func Initialize(db *gorm.DB, cfg *config.Config, svc Services) *gin.Engine {
	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(svc.Health, svc.Sessions.Count)
	productHandler := handlers.NewProductHandler(svc.Products, svc.Storage, cfg.Frontend.BaseURL)
	sessionHandler := handlers.NewSessionHandler(svc.Sessions)
	cartHandler := handlers.NewCartHandler(svc.Sessions)
	checkoutHandler := handlers.NewCheckoutHandler(svc.Sessions, svc.Orders)
	orderHandler := handlers.NewOrderHandler(svc.Orders)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Frontend.AllowedOrigins))
	r.Use(middleware.I18nMiddleware(cfg.I18n.DefaultLocale))
	r.Use(middleware.GeneralRateLimit())
	r.Use(middleware.OptionalAuth())
	r.Use(middleware.AuditLogMiddleware(db))

	r.GET("/health", healthHandler.Health)
	r.Static("/uploads", "./uploads")

	// API v1 routes
	v1 := r.Group("/v1")
	{
		products := v1.Group("/products")
		{
			products.GET("", productHandler.GetProducts)
			products.GET("/:id", productHandler.GetProduct)
			products.GET("/:id/share", productHandler.GetShareLink)
			products.POST("", middleware.AuthRequired(), middleware.SellerRequired(), middleware.UploadRateLimit(), productHandler.CreateProduct)
		}

		v1.POST("/sessions", sessionHandler.CreateSession)
		sessions := v1.Group("/sessions/:id")
		{
			sessions.GET("", sessionHandler.GetSession)
			sessions.DELETE("", sessionHandler.DeleteSession)

			// Native container events
			sessions.POST("/deeplink", sessionHandler.DeepLink)
			sessions.POST("/history", sessionHandler.History)
			sessions.POST("/back", sessionHandler.Back)

			// Feed actions
			sessions.POST("/navigate", sessionHandler.Navigate)
			sessions.POST("/search", sessionHandler.OpenSearch)
			sessions.DELETE("/search", sessionHandler.CloseSearch)
			sessions.POST("/seller", sessionHandler.SelectSeller)
			sessions.DELETE("/seller", sessionHandler.LeaveSeller)
			sessions.POST("/seller/posts/:productId", sessionHandler.SelectSellerPost)
			sessions.POST("/tab", sessionHandler.SetTab)
			sessions.POST("/connectivity", sessionHandler.SetConnectivity)
			sessions.POST("/advisory/dismiss", sessionHandler.DismissAdvisory)

			cart := sessions.Group("/cart")
			{
				cart.GET("", cartHandler.GetCart)
				cart.DELETE("", cartHandler.ClearCart)
				cart.POST("/items", cartHandler.AddItem)
				cart.PUT("/items/:productId", cartHandler.UpdateItem)
				cart.POST("/items/:productId/decrement", cartHandler.DecrementItem)
				cart.DELETE("/items/:productId", cartHandler.RemoveItem)
			}

			sessions.GET("/preferences", checkoutHandler.GetPreferences)
			sessions.PUT("/preferences", checkoutHandler.UpdatePreferences)
			sessions.POST("/checkout", middleware.CheckoutRateLimit(), checkoutHandler.Checkout)
			sessions.POST("/success/dismiss", sessionHandler.DismissSuccess)
			sessions.GET("/orders", checkoutHandler.ListOrders)
		}

		orders := v1.Group("/orders")
		{
			orders.POST("/:id/release", middleware.ReleaseRateLimit(), orderHandler.Release)
		}
	}

	return r
}
