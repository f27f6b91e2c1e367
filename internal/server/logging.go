package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vinender/fieldsy-backend-sub004/internal/logger"
)

// RequestLoggingMiddleware writes one structured log line per request.
// Probe endpoints are skipped so health checks do not drown the log, and
// server errors log at warning so they stand out when tailing.
func RequestLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/health" || path == "/metrics" {
			c.Next()
			return
		}
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
		}

		if status >= http.StatusInternalServerError {
			logger.Warn("HTTP request failed", fields...)
			return
		}
		logger.Info("HTTP request", fields...)
	}
}
