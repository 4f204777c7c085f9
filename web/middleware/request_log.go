// Package middleware holds the gin middleware of the catalog server.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/thucvatbm/species-catalog/logger"
	"github.com/thucvatbm/species-catalog/util/metrics"
)

const RequestIdHeader = "X-Request-Id"

// RequestLogger tags every request with an id, logs the outcome at a level
// chosen by the status class and feeds the request metrics.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(RequestIdHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIdHeader, id)

		c.Next()

		status := c.Writer.Status()
		duration := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveRequest(c.Request.Method, route, status, duration)

		switch {
		case status >= 500:
			logger.Errorf("[%s] %s %s %d %s", id, c.Request.Method, c.Request.URL.Path, status, duration)
		case status >= 400:
			logger.Warningf("[%s] %s %s %d %s", id, c.Request.Method, c.Request.URL.Path, status, duration)
		default:
			logger.Debugf("[%s] %s %s %d %s", id, c.Request.Method, c.Request.URL.Path, status, duration)
		}
	}
}
