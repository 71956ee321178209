package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"dispatch/internal/handler"
	"dispatch/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	OrderHandler    *handler.OrderHandler
	RiderHandler    *handler.RiderHandler
	TrackingHandler *handler.TrackingHandler
	RedisClient     *redis.Client
	NewRelicApp     *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	if deps.RedisClient != nil {
		router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Prometheus metrics.
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Order routes.
		orders := v1.Group("/orders")
		{
			orders.POST("", deps.OrderHandler.CreateOrder)
			orders.GET("", deps.OrderHandler.GetAll)
			orders.GET("/:id", deps.OrderHandler.GetOrder)
			orders.POST("/:id/accept", deps.OrderHandler.AcceptOrder)
			orders.POST("/:id/reject", deps.OrderHandler.RejectOrder)
			orders.POST("/:id/progress", deps.OrderHandler.MarkInProgress)
			orders.POST("/:id/delivered", deps.OrderHandler.MarkDelivered)
			orders.POST("/:id/complete", deps.OrderHandler.CompleteOrder)
			orders.POST("/:id/cancel", deps.OrderHandler.CancelOrder)
			orders.GET("/:id/track", deps.TrackingHandler.Track)
		}

		// Rider routes.
		riders := v1.Group("/riders")
		{
			riders.POST("/register", deps.RiderHandler.Register)
			riders.GET("", deps.RiderHandler.GetAll)
			riders.POST("/:id/location", deps.RiderHandler.UpdateLocation)
			riders.POST("/:id/status", deps.RiderHandler.SetStatus)
			riders.GET("/nearby", deps.RiderHandler.FindNearby)
		}
	}

	return router
}
