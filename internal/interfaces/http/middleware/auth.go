package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nimbus-inc/nimbus/internal/infrastructure/auth"
	"github.com/nimbus-inc/nimbus/internal/shared/logger"
	"github.com/nimbus-inc/nimbus/internal/shared/utils"
)

// AdminAuthMiddleware guards the administrative routes. Operator tokens come
// from the admin login endpoint; there are no end-user sessions.
type AdminAuthMiddleware struct {
	tokenService *auth.AdminTokenService
	logger       logger.Interface
}

func NewAdminAuthMiddleware(tokenService *auth.AdminTokenService, logger logger.Interface) *AdminAuthMiddleware {
	return &AdminAuthMiddleware{
		tokenService: tokenService,
		logger:       logger,
	}
}

func (m *AdminAuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "missing authorization token")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := m.tokenService.Verify(parts[1])
		if err != nil {
			m.logger.Warnw("failed to verify admin token", "error", err)
			utils.ErrorResponse(c, http.StatusUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set("admin_subject", claims.Subject)
		c.Next()
	}
}
