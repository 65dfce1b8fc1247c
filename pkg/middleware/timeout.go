package middleware

import (
	"net/http"
	"time"

	"github.com/gin-contrib/timeout"
	"github.com/gin-gonic/gin"
	"github.com/richxcame/transitflow/pkg/common"
	"github.com/richxcame/transitflow/pkg/logger"
	"go.uber.org/zap"
)

// CodeTimeout is the error code of a request that exceeded its deadline.
const CodeTimeout = "REQUEST_TIMEOUT"

// RequestTimeout bounds every request to d. A handler still running at the
// deadline keeps running, but whatever it writes afterwards is discarded and
// the caller gets a 504.
func RequestTimeout(d time.Duration) gin.HandlerFunc {
	return timeout.New(
		timeout.WithTimeout(d),
		timeout.WithResponse(func(c *gin.Context) {
			logger.WithContext(c.Request.Context()).Warn("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
				zap.Duration("timeout", d),
			)
			c.Header("X-Timeout", "true")
			c.JSON(http.StatusGatewayTimeout, common.Response{
				Success: false,
				Error: &common.ErrorInfo{
					Code:      http.StatusGatewayTimeout,
					ErrorCode: CodeTimeout,
					Message:   "request timeout",
				},
			})
		}),
	)
}
