package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/projecty/backend/internal/metrics"
)

// MetricsMiddleware records HTTP metrics. The path label is the route
// template so ids do not explode cardinality.
func MetricsMiddleware() gin.HandlerFunc {
	m := metrics.Get()

	return func(c *gin.Context) {
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		active := m.HTTPActiveConnections.WithLabelValues(method, path)
		active.Inc()
		defer active.Dec()

		if c.Request.ContentLength > 0 {
			m.HTTPRequestSize.WithLabelValues(method, path).Observe(float64(c.Request.ContentLength))
		}

		start := time.Now()
		c.Next()

		// numeric so status=~"5.." works in queries
		status := strconv.Itoa(c.Writer.Status())
		m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())

		if size := c.Writer.Size(); size > 0 {
			m.HTTPResponseSize.WithLabelValues(method, path, status).Observe(float64(size))
		}
		if c.Writer.Status() >= 500 {
			metrics.RecordError("http_5xx", path)
		}
	}
}
