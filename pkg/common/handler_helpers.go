package common

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/transitflow/pkg/logger"
	"go.uber.org/zap"
)

// HandleServiceError handles service errors with consistent patterns.
// Returns true if an error was handled (and response was sent), false otherwise.
//
// Usage:
//
//	result, err := h.service.FindOptimalRoutes(ctx, origin, destination)
//	if common.HandleServiceError(c, err, "failed to find routes") {
//	    return
//	}
func HandleServiceError(c *gin.Context, err error, fallbackMessage string) bool {
	if err == nil {
		return false
	}

	// Typed business errors carry their own status
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Code >= http.StatusInternalServerError {
			logger.ErrorContext(c.Request.Context(), fallbackMessage,
				zap.String("error_code", appErr.ErrorCode),
				zap.Error(appErr),
			)
			_ = c.Error(appErr)
		}
		AppErrorResponse(c, appErr)
		return true
	}

	logger.ErrorContext(c.Request.Context(), fallbackMessage,
		zap.Error(err),
	)
	_ = c.Error(err)

	ErrorResponse(c, http.StatusInternalServerError, fallbackMessage)
	return true
}

// BindJSON binds JSON request body and sends a validation error on failure.
// Returns true on success, false on failure (response already sent).
//
// Usage:
//
//	var req FindRoutesRequest
//	if !common.BindJSON(c, &req) {
//	    return
//	}
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		AppErrorResponse(c, NewValidationError(err.Error()))
		return false
	}
	return true
}

// BindQuery binds query parameters and sends a validation error on failure.
// Returns true on success, false on failure (response already sent).
func BindQuery(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		AppErrorResponse(c, NewValidationError(err.Error()))
		return false
	}
	return true
}

// RequireParam returns a non-empty path parameter or sends a validation error.
func RequireParam(c *gin.Context, name, displayName string) (string, bool) {
	value := c.Param(name)
	if value == "" {
		AppErrorResponse(c, NewValidationError(displayName+" is required"))
		return "", false
	}
	return value, true
}
