package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursehub-backend/internal/observability"
)

// Health and scrape endpoints are left out of the request histograms.
var unmeteredRoutes = map[string]bool{
	"/metrics":     true,
	"/healthcheck": true,
	"/readyz":      true,
}

// Metrics records request counts and latency per route template.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if unmeteredRoutes[c.Request.URL.Path] {
			c.Next()
			return
		}
		start := time.Now()
		m.HTTPInflightInc()
		defer m.HTTPInflightDec()

		c.Next()

		// Unknown paths share one label so scanners cannot blow up cardinality.
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
