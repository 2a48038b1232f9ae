package httpkit

import (
	"context"
	"strings"
	"time"

	"crm_backend/platform/logger"
	"crm_backend/platform/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

const maxRequestIDLength = 128

// RequestID keeps a caller supplied request id or mints one, echoes it in the
// response and puts it on the request context for logging.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}
		c.Header(HeaderRequestID, id)
		withContextValue(c, logger.RequestIDKey, id)
		c.Next()
	}
}

// RequestLogger logs every request with its matched route and records its
// latency. Errors attached with c.Error are logged separately.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		method := c.Request.Method

		metrics.ObserveHTTPRequest(method, route, status, latency)

		reqLog := log.WithContext(c.Request.Context())
		for _, err := range c.Errors {
			reqLog.HTTPError(method, route, status, err.Err)
		}
		reqLog.HTTPRequest(method, route, status, float64(latency.Microseconds())/1000, c.ClientIP())
	}
}

// SecurityHeaders sets the response headers of a JSON API.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Cache-Control", "no-store")
		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}

func withContextValue(c *gin.Context, key any, value string) {
	c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), key, value))
}
