package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apphttp "crm_backend/internal/http"
	"crm_backend/platform/httpkit"
	"crm_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type stubConfig struct{}

func (stubConfig) GetHTTPAddr() string          { return ":0" }
func (stubConfig) GetCORSAllowAll() bool        { return false }
func (stubConfig) GetCORSOrigins() []string     { return []string{"http://localhost:4200"} }
func (stubConfig) GetCORSAllowCreds() bool      { return true }
func (stubConfig) GetWebhookRatePerMinute() int { return 60 }
func (stubConfig) GetJWTAccessSecret() string   { return "secret" }

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type pingModule struct{}

func (pingModule) Name() string { return "ping" }

func (pingModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	ctx.Admin.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
}

func newEngine(health apphttp.HealthChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return New(&apphttp.App{
		Config:  stubConfig{},
		Logger:  logger.New("test"),
		Health:  health,
		Modules: []apphttp.Module{pingModule{}},
	})
}

func get(engine *gin.Engine, path string) int {
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec.Code
}

func TestHealth(t *testing.T) {
	if code := get(newEngine(pinger{}), "/api/health"); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := get(newEngine(pinger{err: errors.New("down")}), "/api/health"); code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", code)
	}
}

func TestMetricsExposed(t *testing.T) {
	if code := get(newEngine(nil), "/metrics"); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestModuleRoutesRequireAuth(t *testing.T) {
	engine := newEngine(nil)
	for _, path := range []string{"/api/v1/ping", "/api/v1/admin/ping"} {
		if code := get(engine, path); code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, code)
		}
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	engine := newEngine(nil)
	tenant := uuid.New()

	call := func(path string, roles ...string) int {
		token, err := httpkit.IssueAccessToken([]byte("secret"), uuid.New(), &tenant, roles, time.Minute)
		if err != nil {
			t.Fatalf("issue token: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := call("/api/v1/ping", "sales_agent"); code != http.StatusNoContent {
		t.Fatalf("expected 204 for an agent on a protected route, got %d", code)
	}
	if code := call("/api/v1/admin/ping", "sales_agent"); code != http.StatusForbidden {
		t.Fatalf("expected 403 for an agent on an admin route, got %d", code)
	}
	if code := call("/api/v1/admin/ping", "admin"); code != http.StatusNoContent {
		t.Fatalf("expected 204 for an admin, got %d", code)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	engine := newEngine(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(httpkit.HeaderRequestID, "req-123")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if got := rec.Header().Get(httpkit.HeaderRequestID); got != "req-123" {
		t.Fatalf("expected the caller's request id, got %q", got)
	}

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if _, err := uuid.Parse(rec.Header().Get(httpkit.HeaderRequestID)); err != nil {
		t.Fatalf("expected a minted request id, got %q", rec.Header().Get(httpkit.HeaderRequestID))
	}
}
