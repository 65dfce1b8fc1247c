package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/transitflow/pkg/common"
	"github.com/richxcame/transitflow/pkg/jwtkeys"
	"github.com/richxcame/transitflow/pkg/logger"
	"github.com/richxcame/transitflow/pkg/models"
)

// Context keys set by AuthMiddleware.
const (
	UserIDKey    = "user_id"
	UserEmailKey = "user_email"
	UserRoleKey  = "user_role"
	VehicleIDKey = "vehicle_id"
)

// AuthMiddleware validates JWT tokens using the supplied key provider.
func AuthMiddleware(provider jwtkeys.KeyProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := jwtkeys.BearerToken(c.GetHeader("Authorization"))
		if !ok {
			common.AppErrorResponse(c, common.NewUnauthorizedError("invalid authorization header format"))
			c.Abort()
			return
		}
		if tokenString == "" {
			// Allow token via query param for WebSocket connections
			tokenString = c.Query("token")
		}

		claims, err := jwtkeys.ParseToken(provider, tokenString)
		if err != nil {
			common.AppErrorResponse(c, common.NewUnauthorizedError(err.Error()))
			c.Abort()
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UserEmailKey, claims.Email)
		c.Set(UserRoleKey, claims.Role)
		if claims.VehicleID != "" {
			c.Set(VehicleIDKey, claims.VehicleID)
		}

		ctx := logger.ContextWithUserID(c.Request.Context(), claims.UserID)
		c.Request = c.Request.WithContext(ctx)

		SetSentryUser(c)

		c.Next()
	}
}

// RequireRole middleware checks if user has required role
func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := GetUserRole(c)
		if err != nil {
			common.ErrorResponse(c, http.StatusUnauthorized, "user role not found")
			c.Abort()
			return
		}

		for _, requiredRole := range roles {
			if role == requiredRole {
				c.Next()
				return
			}
		}

		common.AppErrorResponse(c, common.NewForbiddenError("insufficient permissions"))
		c.Abort()
	}
}

// GetUserID extracts user ID from context
func GetUserID(c *gin.Context) (string, error) {
	userID, ok := c.Get(UserIDKey)
	if !ok {
		return "", common.ErrUnauthorized
	}
	id, ok := userID.(string)
	if !ok || id == "" {
		return "", common.ErrUnauthorized
	}
	return id, nil
}

// GetUserRole extracts user role from context
func GetUserRole(c *gin.Context) (models.UserRole, error) {
	role, ok := c.Get(UserRoleKey)
	if !ok {
		return "", common.ErrUnauthorized
	}
	r, ok := role.(models.UserRole)
	if !ok {
		return "", common.ErrUnauthorized
	}
	return r, nil
}

// GetVehicleID returns the vehicle bound to the driver's token, if any.
func GetVehicleID(c *gin.Context) string {
	return c.GetString(VehicleIDKey)
}
