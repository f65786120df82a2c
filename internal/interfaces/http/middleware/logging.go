package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/nimbus-inc/nimbus/internal/shared/logger"
)

// Logger emits one structured line per request, leveled by outcome: server
// errors at error, client errors at warn, everything else at debug.
func Logger(log logger.Interface) gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(p gin.LogFormatterParams) string {
		fields := []any{
			"method", p.Method,
			"path", p.Path,
			"status", p.StatusCode,
			"latency", p.Latency,
			"client_ip", p.ClientIP,
			"user_agent", p.Request.UserAgent(),
		}
		if p.ErrorMessage != "" {
			fields = append(fields, "error", p.ErrorMessage)
		}

		switch {
		case p.StatusCode >= 500:
			log.Errorw("HTTP request completed", fields...)
		case p.StatusCode >= 400:
			log.Warnw("HTTP request completed", fields...)
		default:
			log.Debugw("HTTP request completed", fields...)
		}
		return ""
	})
}
