package jwtkeys

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/richxcame/transitflow/pkg/models"
)

var (
	ErrMissingToken  = errors.New("authorization required")
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrInvalidClaims = errors.New("invalid token claims")
)

// Claims represents the JWT claims issued to passengers and drivers.
type Claims struct {
	UserID    string          `json:"user_id"`
	Email     string          `json:"email,omitempty"`
	Role      models.UserRole `json:"role"`
	VehicleID string          `json:"vehicle_id,omitempty"`
	jwt.RegisteredClaims
}

// ParseToken verifies tokenString against provider and returns its claims.
func ParseToken(provider KeyProvider, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return resolveSigningKey(provider, token)
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.UserID == "" || !claims.Role.IsValid() {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value. ok is false when the header is present but malformed.
func BearerToken(header string) (token string, ok bool) {
	if header == "" {
		return "", true
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

func resolveSigningKey(provider KeyProvider, token *jwt.Token) ([]byte, error) {
	if provider == nil {
		return nil, jwt.ErrInvalidKey
	}

	var kid string
	if headerKid, ok := token.Header["kid"]; ok {
		kid, _ = headerKid.(string)
	}

	if kid != "" {
		return provider.ResolveKey(kid)
	}

	legacy := provider.LegacyKey()
	if len(legacy) == 0 {
		return nil, ErrKeyNotFound
	}
	return legacy, nil
}
