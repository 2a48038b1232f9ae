// Package http holds the contract between the router and the bounded context
// modules that mount routes on it.
package http

import (
	"context"

	"crm_backend/platform/config"
	"crm_backend/platform/httpkit"
	"crm_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// Module is a bounded context with HTTP routes.
type Module interface {
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext is what a module receives when registering routes.
type RouterContext struct {
	Engine *gin.Engine
	// V1 is /api/v1 without authentication.
	V1 *gin.RouterGroup
	// Protected is /api/v1 behind the access token check.
	Protected *gin.RouterGroup
	// Admin is /api/v1/admin, additionally restricted to admins.
	Admin *gin.RouterGroup
	// WebhookRateLimiter limits inbound channel calls per API key. May be nil.
	WebhookRateLimiter *httpkit.RateLimiter
}

// RouterConfig is the configuration the router reads.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is the composition root's handoff to the router.
type App struct {
	Config  RouterConfig
	Logger  *logger.Logger
	Health  HealthChecker
	Modules []Module
}
