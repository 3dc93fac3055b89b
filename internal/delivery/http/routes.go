package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chefmarket/backend/config"
)

// RouterOptions carries the optional observability hooks of the router
type RouterOptions struct {
	Logger   *zap.Logger
	Observer HTTPObserver
	// Metrics serves GET /metrics when set
	Metrics http.Handler
}

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, opts RouterOptions) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(opts.Logger))
	router.Use(MetricsMiddleware(opts.Observer))
	router.Use(RecoveryMiddleware(opts.Logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)
	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))
	{
		sources := v1.Group("/price-sources")
		{
			sources.GET("", handler.ListPriceSources)
			sources.POST("", handler.CreatePriceSource)
			sources.GET("/:id", handler.GetPriceSource)
			sources.PUT("/:id", handler.UpdatePriceSource)
			sources.DELETE("/:id", handler.DeletePriceSource)
		}

		prices := v1.Group("/prices")
		{
			prices.POST("/scrape", handler.ScrapePrices)
			prices.GET("/compare/:ingredient", handler.ComparePrices)
			prices.DELETE("/history", handler.PurgeHistory)
		}

		admin := v1.Group("/admin")
		{
			admin.GET("/cache/stats", handler.CacheStats)
			admin.DELETE("/cache", handler.ClearCache)
		}
	}

	return router
}
