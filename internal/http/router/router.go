// Package router builds the gin engine from the application's modules.
package router

import (
	"context"
	"net/http"
	"time"

	apphttp "crm_backend/internal/http"
	"crm_backend/platform/httpkit"
	"crm_backend/platform/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const (
	// AdminRole is required on /api/v1/admin routes.
	AdminRole = "admin"

	webhookKeyHeader   = "X-Webhook-API-Key"
	healthTimeout      = 2 * time.Second
	maxMultipartMemory = 32 << 20
)

// New creates the engine: global middleware, health and metrics endpoints, and
// the route groups every module registers into.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.MaxMultipartMemory = maxMultipartMemory
	engine.Use(
		gin.Recovery(),
		httpkit.RequestID(),
		httpkit.RequestLogger(app.Logger),
		httpkit.SecurityHeaders(),
		cors.New(corsConfig(app.Config)),
	)

	engine.GET("/api/health", health(app.Health))
	engine.GET("/metrics", metrics.Handler())

	v1 := engine.Group("/api/v1")
	auth := httpkit.AuthRequired(app.Config)

	rc := &apphttp.RouterContext{
		Engine:    engine,
		V1:        v1,
		Protected: v1.Group("", auth),
		Admin:     v1.Group("/admin", auth, httpkit.RequireAnyRole(AdminRole)),
		WebhookRateLimiter: httpkit.NewRateLimiter(
			app.Config.GetWebhookRatePerMinute(),
			httpkit.ByHeaderOrIP(webhookKeyHeader),
			app.Logger,
		),
	}
	for _, module := range app.Modules {
		module.RegisterRoutes(rc)
		app.Logger.Info("module routes registered", "module", module.Name())
	}

	return engine
}

func health(checker apphttp.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
			defer cancel()
			if err := checker.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func corsConfig(cfg apphttp.RouterConfig) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", webhookKeyHeader, httpkit.HeaderRequestID},
		ExposeHeaders:    []string{"Retry-After", httpkit.HeaderRequestID},
		AllowCredentials: cfg.GetCORSAllowCreds(),
		MaxAge:           12 * time.Hour,
	}
	if cfg.GetCORSAllowAll() {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.GetCORSOrigins()
	}
	return c
}
