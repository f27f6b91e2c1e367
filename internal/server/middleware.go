package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vinender/fieldsy-backend-sub004/internal/metrics"
)

// MetricsMiddleware observes every request into the HTTP request histogram,
// labelled by the route pattern rather than the raw path so ids do not
// explode the label cardinality.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		metrics.RecordHTTPRequest(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start).Seconds(),
		)
	}
}
