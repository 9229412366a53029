package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/usage-forecaster/internal/domain/auth"
	apperrors "github.com/yanqian/usage-forecaster/pkg/errors"
)

const authClaimsKey = "auth_claims"

// authMiddleware requires a valid bearer token and stores its claims on the
// gin context.
func authMiddleware(svc auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing authorization header", nil))
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "invalid authorization header", nil))
			return
		}
		claims, err := svc.ValidateToken(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			if apperrors.IsCode(err, auth.CodeInvalidToken) {
				abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "invalid token", err))
				return
			}
			abortWithError(c, NewHTTPError(http.StatusInternalServerError, "auth_failed", "token check failed", err))
			return
		}
		c.Set(authClaimsKey, claims)
		c.Next()
	}
}

// requestSubject returns the token subject of an authenticated request.
func requestSubject(c *gin.Context) (string, bool) {
	value, ok := c.Get(authClaimsKey)
	if !ok {
		return "", false
	}
	claims, ok := value.(auth.Claims)
	if !ok || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}
