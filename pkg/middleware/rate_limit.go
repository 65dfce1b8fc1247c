package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/transitflow/pkg/common"
	"github.com/richxcame/transitflow/pkg/logger"
	"github.com/richxcame/transitflow/pkg/ratelimit"
	"go.uber.org/zap"
)

// RateLimit throttles the route by endpoint name, per authenticated user or,
// without one, per client IP. Limiter failures let the request through.
func RateLimit(limiter *ratelimit.Limiter, endpoint string) gin.HandlerFunc {
	if !limiter.Enabled() {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		identity := c.ClientIP()
		if userID, err := GetUserID(c); err == nil {
			identity = userID
		}

		result, err := limiter.Allow(c.Request.Context(), endpoint, identity)
		if err != nil {
			logger.WarnContext(c.Request.Context(), "rate limit evaluation failed",
				zap.String("endpoint", endpoint),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if result.Limit > 0 {
			c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(max(result.Remaining, 0)))
			c.Header("X-RateLimit-Reset", strconv.Itoa(wholeSeconds(result.ResetAfter)))
			c.Header("X-RateLimit-Resource", endpoint)
		}

		if result.Allowed {
			c.Next()
			return
		}

		retry := max(wholeSeconds(result.RetryAfter), 1)
		c.Header("Retry-After", strconv.Itoa(retry))
		logger.WarnContext(c.Request.Context(), "rate limit exceeded",
			zap.String("endpoint", endpoint),
			zap.String("identity", identity),
			zap.Int("retry_after_seconds", retry),
		)

		common.AppErrorResponse(c, common.NewRateLimitError("rate limit exceeded"))
		c.Abort()
	}
}

func wholeSeconds(d time.Duration) int {
	return max(int(d.Round(time.Second)/time.Second), 0)
}
