package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/richxcame/transitflow/pkg/errors"
)

// SentryMiddleware attaches a Sentry hub to each request and reports panics.
func SentryMiddleware() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         2 * time.Second,
	})
}

// ErrorHandler reports unexpected request errors to Sentry. Place it after
// SentryMiddleware in the chain.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		errors.AddBreadcrumbForRequest(c.Request.Method, c.Request.URL.Path, statusCode, duration)

		reported := false
		for _, err := range c.Errors {
			if errors.ShouldReportError(err.Err, statusCode) {
				captureError(c, err.Err, statusCode, duration)
				reported = true
			}
		}

		// 5xx without an attached error, e.g. a timed-out request.
		if statusCode >= http.StatusInternalServerError && len(c.Errors) == 0 && !reported {
			hub := hubFor(c)
			hub.Scope().SetLevel(getSentryLevel(statusCode))
			hub.CaptureMessage(fmt.Sprintf("HTTP %d: %s %s", statusCode, c.Request.Method, c.Request.URL.Path))
		}
	}
}

func captureError(c *gin.Context, err error, statusCode int, duration time.Duration) {
	hub := hubFor(c)

	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetRequest(c.Request)
		scope.SetLevel(getSentryLevel(statusCode))
		scope.SetTag("http.method", c.Request.Method)
		scope.SetTag("http.status_code", fmt.Sprintf("%d", statusCode))
		scope.SetTag("endpoint", c.FullPath())
		if correlationID := GetCorrelationID(c); correlationID != "" {
			scope.SetTag("correlation_id", correlationID)
		}
		scope.SetContext("http", map[string]interface{}{
			"method":      c.Request.Method,
			"status_code": statusCode,
			"duration_ms": duration.Milliseconds(),
			"handler":     c.HandlerName(),
		})
		hub.CaptureException(err)
	})
}

func hubFor(c *gin.Context) *sentry.Hub {
	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		return hub
	}
	return sentry.CurrentHub().Clone()
}

// getSentryLevel maps HTTP status codes to Sentry severity levels
func getSentryLevel(statusCode int) sentry.Level {
	switch {
	case statusCode >= 500:
		return sentry.LevelError
	case statusCode == http.StatusTooManyRequests:
		return sentry.LevelWarning
	default:
		return sentry.LevelInfo
	}
}

// SetSentryUser copies the authenticated user onto the request's Sentry scope.
func SetSentryUser(c *gin.Context) {
	hub := sentrygin.GetHubFromContext(c)
	if hub == nil {
		return
	}

	userID, err := GetUserID(c)
	if err != nil {
		return
	}
	hub.Scope().SetUser(sentry.User{
		ID:        userID,
		Email:     c.GetString(UserEmailKey),
		IPAddress: c.ClientIP(),
	})
	if role, err := GetUserRole(c); err == nil {
		hub.Scope().SetTag("user.role", string(role))
	}
}
