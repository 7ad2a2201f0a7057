package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/noticeboard-api/internal/service"
)

const (
	scrapePath    = "/metrics"
	unmatchedPath = "unmatched"
)

// Metrics records one observation per request labelled with the route
// template, so /notices/:id is a single series whatever the id. Requests that
// match no route share one label and scrapes of the metrics endpoint are not
// counted.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		switch route {
		case scrapePath:
			return
		case "":
			route = unmatchedPath
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
