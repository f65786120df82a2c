package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nimbus-inc/nimbus/internal/infrastructure/ratelimit"
	"github.com/nimbus-inc/nimbus/internal/shared/logger"
	"github.com/nimbus-inc/nimbus/internal/shared/utils"
)

// RateLimit throttles per client IP over a one-minute sliding window.
// A limiter failure lets the request through; availability wins over
// strictness for this endpoint class.
func RateLimit(limiter ratelimit.RateLimiter, requestsPerMinute int, log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := limiter.Allow(c.Request.Context(), c.ClientIP(), requestsPerMinute, time.Minute)
		if err != nil {
			log.Warnw("rate limiter check failed", "client_ip", c.ClientIP(), "error", err)
			c.Next()
			return
		}

		if !allowed {
			utils.ErrorResponse(c, http.StatusTooManyRequests, "too many requests")
			c.Abort()
			return
		}

		c.Next()
	}
}
