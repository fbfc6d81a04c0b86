package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quayside/chandler/pkg/metrics"
)

// requestMetrics records request counts and latencies per method and status
func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		metrics.APIRequestsTotal.WithLabelValues(c.Request.Method, status).Inc()
		metrics.APIRequestDuration.WithLabelValues(c.Request.Method).
			Observe(time.Since(start).Seconds())
	}
}
