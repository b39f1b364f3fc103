package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/layer-3/nocode/core"
	"github.com/layer-3/nocode/internal/logging"
	"github.com/layer-3/nocode/service"
)

const (
	sessionContextKey = "session"
	requestIDHeader   = "X-Request-ID"
)

// HTTPMetrics records one observation per served request
type HTTPMetrics interface {
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
}

// SessionMiddleware rejects requests without a valid session cookie
func SessionMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := authService.Authenticate(c.Request.Context(), sessionToken(c))
		if err != nil {
			respondError(c, err)
			return
		}

		c.Set(sessionContextKey, session)

		c.Next()
	}
}

// SessionFromContext returns the session stored by SessionMiddleware
func SessionFromContext(c *gin.Context) (*core.Session, bool) {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return nil, false
	}
	session, ok := v.(*core.Session)
	return session, ok && session != nil
}

// RequestLogger attaches a request scoped logger and logs every request
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		logger := logging.FromContext(c.Request.Context()).With(
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)
		c.Request = c.Request.WithContext(logging.WithContext(c.Request.Context(), logger))

		c.Next()

		status := c.Writer.Status()
		attrs := []any{"status", status, "duration", time.Since(start)}
		ctx := c.Request.Context()
		switch {
		case status >= http.StatusInternalServerError:
			logger.ErrorContext(ctx, "request served", attrs...)
		case status >= http.StatusBadRequest:
			logger.WarnContext(ctx, "request served", attrs...)
		default:
			logger.InfoContext(ctx, "request served", attrs...)
		}
	}
}

// Metrics records request count and latency per matched route
func Metrics(m HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// CORS allows credentialed requests from the configured frontend origin
func CORS(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", allowedOrigin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")
		c.Header("Vary", "Origin")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
