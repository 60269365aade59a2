package transport

import (
	"net/http"
	"time"

	"github.com/ds124wfegd/coloringbook/internal/pkg/metrics"
	"github.com/ds124wfegd/coloringbook/internal/transport/middleware"
	"github.com/gin-gonic/gin"
)

// InitRoutes wires the page, health, metrics and the conversion API.
// Conversions run without the request timeout because they wait on the
// generation service.
func InitRoutes(handler *ConversionHandler, collector *metrics.Collector, timeout time.Duration) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics(collector))

	router.GET("/", handler.Index)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "coloringbook",
		})
	})
	router.GET("/metrics", gin.WrapH(collector.Handler()))

	api := router.Group("/api/v1")
	{
		api.GET("/formats", middleware.Timeout(timeout), handler.GetFormats)

		conversions := api.Group("/conversions")
		{
			conversions.POST("", handler.CreateConversion)
			conversions.GET("/:id", middleware.Timeout(timeout), handler.GetConversion)
			conversions.GET("/:id/result", middleware.Timeout(timeout), handler.GetResult)
			conversions.DELETE("/:id", middleware.Timeout(timeout), handler.DeleteConversion)
		}
	}

	return router
}
