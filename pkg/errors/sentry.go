package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/richxcame/transitflow/pkg/common"
	"github.com/richxcame/transitflow/pkg/config"
	"github.com/richxcame/transitflow/pkg/logger"
)

// SentryConfig holds configuration for Sentry integration
type SentryConfig struct {
	DSN              string
	Environment      string
	Release          string
	TracesSampleRate float64
	ServerName       string
	AttachStacktrace bool
}

// SentryConfigFrom builds the Sentry settings for a service from its loaded config.
func SentryConfigFrom(cfg *config.Config) *SentryConfig {
	return &SentryConfig{
		DSN:              cfg.Sentry.DSN,
		Environment:      cfg.Server.Environment,
		Release:          cfg.Tracing.ServiceVersion,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
		ServerName:       cfg.Server.ServiceName,
		AttachStacktrace: true,
	}
}

// Enabled reports whether a DSN is configured.
func (c *SentryConfig) Enabled() bool {
	return c != nil && c.DSN != ""
}

// InitSentry initializes the Sentry SDK with the given configuration
func InitSentry(config *SentryConfig) error {
	if !config.Enabled() {
		return fmt.Errorf("sentry DSN is not configured")
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              config.DSN,
		Environment:      config.Environment,
		Release:          config.Release,
		TracesSampleRate: config.TracesSampleRate,
		EnableTracing:    config.TracesSampleRate > 0,
		ServerName:       config.ServerName,
		AttachStacktrace: config.AttachStacktrace,
		BeforeSend:       filterEvent,
		BeforeBreadcrumb: func(breadcrumb *sentry.Breadcrumb, hint *sentry.BreadcrumbHint) *sentry.Breadcrumb {
			if breadcrumb.Category == "http" && breadcrumb.Data != nil {
				delete(breadcrumb.Data, "Authorization")
				delete(breadcrumb.Data, "Cookie")
			}
			return breadcrumb
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize sentry: %w", err)
	}

	return nil
}

// filterEvent drops informational events; only errors and warnings are sent.
func filterEvent(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	if event.Level == sentry.LevelInfo || event.Level == sentry.LevelDebug {
		return nil
	}
	return event
}

// Flush flushes the Sentry buffer
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// CaptureError captures an error and sends it to Sentry
func CaptureError(err error) *sentry.EventID {
	if err == nil {
		return nil
	}
	return sentry.CaptureException(err)
}

// CaptureErrorWithContext captures an error with the correlation and user ids
// found on ctx plus any extras.
func CaptureErrorWithContext(ctx context.Context, err error, extras map[string]interface{}) *sentry.EventID {
	if err == nil {
		return nil
	}

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
	}

	var id *sentry.EventID
	hub.WithScope(func(scope *sentry.Scope) {
		for key, value := range extras {
			scope.SetExtra(key, value)
		}
		if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
			scope.SetTag("correlation_id", correlationID)
		}
		if userID := logger.UserIDFromContext(ctx); userID != "" {
			scope.SetUser(sentry.User{ID: userID})
		}
		if ginCtx, ok := ctx.(*gin.Context); ok {
			addGinContextToScope(scope, ginCtx)
		}
		id = hub.CaptureException(err)
	})
	return id
}

// AddBreadcrumbForRequest adds a breadcrumb for HTTP request
func AddBreadcrumbForRequest(method, url string, statusCode int, duration time.Duration) {
	sentry.AddBreadcrumb(&sentry.Breadcrumb{
		Type:      "http",
		Category:  "http.request",
		Level:     sentry.LevelInfo,
		Message:   fmt.Sprintf("%s %s", method, url),
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"method":      method,
			"url":         url,
			"status_code": statusCode,
			"duration_ms": duration.Milliseconds(),
		},
	})
}

// IsBusinessError reports whether err is an expected outcome of a request
// (bad input, unknown id, missing credentials) rather than a fault.
func IsBusinessError(err error) bool {
	if err == nil {
		return false
	}

	var appErr *common.AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code < http.StatusInternalServerError
	}

	for _, target := range []error{
		common.ErrValidation,
		common.ErrNotFound,
		common.ErrUnauthorized,
		common.ErrForbidden,
		common.ErrBadRequest,
	} {
		if stderrors.Is(err, target) {
			return true
		}
	}
	return false
}

// ShouldReportError determines if an error should be reported to Sentry
func ShouldReportError(err error, statusCode int) bool {
	if err == nil {
		return false
	}

	if IsBusinessError(err) {
		return false
	}

	// Client errors are never reported except rate limiting.
	if statusCode >= 400 && statusCode < 500 && statusCode != http.StatusTooManyRequests {
		return false
	}

	return true
}

func addGinContextToScope(scope *sentry.Scope, c *gin.Context) {
	scope.SetRequest(c.Request)

	if userID, exists := c.Get("user_id"); exists {
		scope.SetUser(sentry.User{
			ID: fmt.Sprintf("%v", userID),
		})
	}

	if correlationID := logger.CorrelationIDFromContext(c.Request.Context()); correlationID != "" {
		scope.SetTag("correlation_id", correlationID)
	}

	scope.SetContext("http", map[string]interface{}{
		"method":      c.Request.Method,
		"url":         c.Request.URL.String(),
		"headers":     sanitizeHeaders(c.Request.Header),
		"remote_addr": c.ClientIP(),
		"user_agent":  c.Request.UserAgent(),
	})
}

func sanitizeHeaders(headers http.Header) map[string]string {
	sanitized := make(map[string]string)
	sensitiveHeaders := map[string]bool{
		"Authorization": true,
		"Cookie":        true,
		"X-Api-Key":     true,
	}

	for key, values := range headers {
		if sensitiveHeaders[http.CanonicalHeaderKey(key)] {
			sanitized[key] = "[REDACTED]"
		} else if len(values) > 0 {
			sanitized[key] = values[0]
		}
	}

	return sanitized
}
