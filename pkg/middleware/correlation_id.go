package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/richxcame/transitflow/pkg/logger"
)

const (
	// CorrelationIDHeader carries the correlation id on requests and responses
	CorrelationIDHeader = "X-Correlation-ID"
	// RequestIDHeader is accepted on input for gateways that only set it
	RequestIDHeader = "X-Request-ID"
	// CorrelationIDKey is the gin context key for the correlation id
	CorrelationIDKey = "correlationId"

	maxCorrelationIDLength = 64
)

// CorrelationID takes the caller's correlation id, or mints a UUID when the
// header is absent or unusable, and puts it on the request context and the
// response.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := incomingCorrelationID(c)
		if correlationID == "" {
			correlationID = uuid.NewString()
		}

		c.Set(CorrelationIDKey, correlationID)
		c.Request = c.Request.WithContext(logger.ContextWithCorrelationID(c.Request.Context(), correlationID))
		c.Writer.Header().Set(CorrelationIDHeader, correlationID)

		c.Next()
	}
}

func incomingCorrelationID(c *gin.Context) string {
	for _, header := range []string{CorrelationIDHeader, RequestIDHeader} {
		if id := strings.TrimSpace(c.GetHeader(header)); validCorrelationID(id) {
			return id
		}
	}
	return ""
}

// validCorrelationID accepts tokens of at most 64 letters, digits, '-', '_'
// and '.'.
func validCorrelationID(id string) bool {
	if id == "" || len(id) > maxCorrelationIDLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}

// GetCorrelationID returns the correlation id of the request
func GetCorrelationID(c *gin.Context) string {
	if id := c.GetString(CorrelationIDKey); id != "" {
		return id
	}
	return logger.CorrelationIDFromContext(c.Request.Context())
}
