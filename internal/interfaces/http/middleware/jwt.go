package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lpai/backend/internal/infrastructure/auth"
)

// JWT context keys
const (
	JWTClaimsKey  = "jwt_claims"
	JWTCallerKey  = "jwt_caller"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// JWTAuthMiddleware guards the operational API. Requests must carry a
// bearer token issued for a named caller; the OAuth callback and health
// endpoints are registered outside the guarded group and never pass
// through here.
func JWTAuthMiddleware(jwtService *auth.JWTService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" {
			abortUnauthorized(c, "Missing authorization header")
			return
		}
		if !strings.HasPrefix(authHeader, BearerPrefix) {
			abortUnauthorized(c, "Invalid authorization header format")
			return
		}
		tokenString := strings.TrimPrefix(authHeader, BearerPrefix)
		if tokenString == "" {
			abortUnauthorized(c, "Missing token")
			return
		}

		claims, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			if logger != nil {
				logger.Warn("token validation failed",
					zap.String("path", c.Request.URL.Path),
					zap.Error(err))
			}
			switch err {
			case auth.ErrExpiredToken:
				abortUnauthorized(c, "Token has expired")
			default:
				abortUnauthorized(c, "Invalid token")
			}
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTCallerKey, claims.Caller)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "ERR_UNAUTHORIZED",
			"message": message,
		},
	})
}

// GetJWTCaller retrieves the caller name from context
func GetJWTCaller(c *gin.Context) string {
	if caller, exists := c.Get(JWTCallerKey); exists {
		if name, ok := caller.(string); ok {
			return name
		}
	}
	return ""
}
