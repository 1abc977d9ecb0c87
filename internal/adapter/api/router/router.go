package router

import (
	"github.com/labstack/echo/v4"

	"petcycle/internal/adapter/api/middleware"
	"petcycle/internal/infrastructure/ratelimit"
)

type Options struct {
	Environment string
	// DevTokens mounts /_dev/token; only honored in development.
	DevTokens   bool
	RateLimiter *ratelimit.RateLimiter
}

func Setup(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, adminMiddleware *middleware.AdminMiddleware, opts Options) {
	api := e.Group("/api")
	if opts.RateLimiter != nil {
		api.Use(middleware.RateLimit(opts.RateLimiter, ratelimit.ActionAPIRequest))
	}

	SetupChatRouter(api, authMiddleware)
	SetupUserRouter(api, authMiddleware)
	SetupProductRouter(api, authMiddleware)
	SetupTransactionRouter(api, authMiddleware)
	SetupAdminRouter(api, authMiddleware, adminMiddleware)
	SetupWebSocketRouter(e, authMiddleware)
	SetupHealthRouter(e)
	if opts.DevTokens {
		SetupDevRouter(e, opts.Environment)
	}
}
