package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nimbus-inc/nimbus/internal/interfaces/http/middleware"
	"github.com/nimbus-inc/nimbus/internal/shared/utils"
)

// Router owns the gin engine and the route table.
type Router struct {
	engine    *gin.Engine
	container *Container
}

// NewRouter creates the HTTP router on top of a wired container.
func NewRouter(container *Container) *Router {
	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	return &Router{
		engine:    engine,
		container: container,
	}
}

// SetupRoutes configures middleware and all HTTP routes.
func (r *Router) SetupRoutes() {
	c := r.container

	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.Logger(c.log))
	r.engine.Use(middleware.CORS(c.cfg.Server.AllowedOrigins))

	r.engine.NoMethod(func(ctx *gin.Context) {
		utils.ErrorResponse(ctx, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.engine.NoRoute(func(ctx *gin.Context) {
		utils.ErrorResponse(ctx, http.StatusNotFound, "route not found")
	})

	r.engine.GET("/health", func(ctx *gin.Context) {
		utils.SuccessResponse(ctx, http.StatusOK, "ok", nil)
	})

	limit := func() gin.HandlerFunc {
		if c.cfg.RateLimit.Enabled && c.rateLimiter != nil {
			return middleware.RateLimit(c.rateLimiter, c.cfg.RateLimit.RequestsPerMinute, c.log)
		}
		return func(ctx *gin.Context) { ctx.Next() }
	}()

	v1 := r.engine.Group("/api/v1")
	{
		entitlements := v1.Group("/entitlements")
		{
			entitlements.POST("/token/apply", limit, c.entitlementHandler.ApplyToken)
			entitlements.POST("/devices/claim", limit, c.entitlementHandler.ClaimDevice)
			entitlements.POST("/devices/release", c.entitlementHandler.ReleaseDevice)
			entitlements.GET("/codes/:code/summary", c.entitlementHandler.GetCodeSummary)
		}

		v1.POST("/devices/register", c.deviceHandler.Register)

		admin := v1.Group("/admin")
		{
			admin.POST("/login", limit, c.adminHandler.Login)

			guarded := admin.Group("")
			guarded.Use(c.adminAuthMiddleware.RequireAdmin())
			{
				guarded.POST("/users/:uid/reset", c.adminHandler.ResetUser)
				guarded.POST("/codes/:code/clear", c.adminHandler.ClearCode)
			}
		}
	}
}

// GetEngine returns the gin engine, mainly for the server command and tests.
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
