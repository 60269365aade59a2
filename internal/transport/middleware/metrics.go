package middleware

import (
	"time"

	"github.com/ds124wfegd/coloringbook/internal/pkg/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics records every request under its route pattern, not the raw URL.
func Metrics(collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		collector.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
