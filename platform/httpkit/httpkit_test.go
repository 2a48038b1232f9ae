package httpkit

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"crm_backend/platform/apperr"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type jwtSecret string

func (s jwtSecret) GetJWTAccessSecret() string { return string(s) }

func init() {
	gin.SetMode(gin.TestMode)
}

func TestParseAccessToken(t *testing.T) {
	secret := []byte("secret")
	user := uuid.New()
	tenant := uuid.New()

	token, err := IssueAccessToken(secret, user, &tenant, []string{"admin"}, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := ParseAccessToken(token, secret)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != user.String() || claims.TenantID != tenant.String() || len(claims.Roles) != 1 {
		t.Fatalf("unexpected claims %+v", claims)
	}

	if _, err := ParseAccessToken(token, []byte("other")); err == nil {
		t.Fatal("expected a signature mismatch to fail")
	}

	expired, _ := IssueAccessToken(secret, user, nil, nil, -time.Minute)
	if _, err := ParseAccessToken(expired, secret); err == nil {
		t.Fatal("expected an expired token to fail")
	}

	refresh, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		Type:             "refresh",
		RegisteredClaims: jwt.RegisteredClaims{Subject: user.String(), ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute))},
	}).SignedString(secret)
	if _, err := ParseAccessToken(refresh, secret); err == nil {
		t.Fatal("expected a refresh token to be rejected")
	}

	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		Type:             accessTokenType,
		RegisteredClaims: jwt.RegisteredClaims{Subject: user.String()},
	}).SignedString(secret)
	if _, err := ParseAccessToken(noExpiry, secret); err == nil {
		t.Fatal("expected a token without expiry to be rejected")
	}
}

func TestAuthRequiredSetsIdentity(t *testing.T) {
	user := uuid.New()
	tenant := uuid.New()

	var seen Identity
	engine := gin.New()
	engine.GET("/me", AuthRequired(jwtSecret("secret")), func(c *gin.Context) {
		id, tenantID, ok := RequireTenant(c)
		if !ok {
			return
		}
		seen = id
		c.String(http.StatusOK, tenantID.String())
	})

	call := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
		return rec
	}

	if rec := call(""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", rec.Code)
	}
	if rec := call("Basic abc"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for another scheme, got %d", rec.Code)
	}

	token, _ := IssueAccessToken([]byte("secret"), user, &tenant, []string{"sales_agent"}, time.Minute)
	rec := call("bearer " + token)
	if rec.Code != http.StatusOK || rec.Body.String() != tenant.String() {
		t.Fatalf("expected the tenant, got %d %s", rec.Code, rec.Body.String())
	}
	if seen.UserID() != user || !seen.HasRole("sales_agent") || seen.HasRole("admin") {
		t.Fatalf("unexpected identity %+v", seen)
	}

	unscoped, _ := IssueAccessToken([]byte("secret"), user, nil, nil, time.Minute)
	if rec := call("Bearer " + unscoped); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without a tenant scope, got %d", rec.Code)
	}
}

func TestRateLimiterPerKey(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter(2, nil, nil)
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if ok, _ := l.Allow("a"); !ok {
			t.Fatalf("request %d should pass", i)
		}
	}
	ok, wait := l.Allow("a")
	if ok || wait <= 0 {
		t.Fatalf("expected the third request to wait, got ok=%t wait=%s", ok, wait)
	}
	if ok, _ := l.Allow("b"); !ok {
		t.Fatal("expected another key to have its own bucket")
	}

	now = now.Add(time.Minute)
	if ok, _ := l.Allow("a"); !ok {
		t.Fatal("expected tokens to refill")
	}
}

func TestRateLimiterDropsIdleBuckets(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter(60, nil, nil)
	l.now = func() time.Time { return now }

	l.Allow("a")
	now = now.Add(2 * defaultIdleTTL)
	l.Allow("b")

	if _, ok := l.buckets["a"]; ok {
		t.Fatal("expected the idle bucket to be dropped")
	}
	if _, ok := l.buckets["b"]; !ok {
		t.Fatal("expected the fresh bucket to stay")
	}
}

func TestRateLimitMiddlewareSetsRetryAfter(t *testing.T) {
	engine := gin.New()
	engine.GET("/x", NewRateLimiter(1, ByHeaderOrIP("X-Key"), nil).Middleware(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	call := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("X-Key", key)
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
		return rec
	}

	if rec := call("k1"); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	rec := call("k1")
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected 429 with Retry-After, got %d %v", rec.Code, rec.Header())
	}
	if rec := call("k2"); rec.Code != http.StatusNoContent {
		t.Fatalf("expected a separate budget per key, got %d", rec.Code)
	}
}

func TestHandleError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		status     int
		retryAfter string
		body       string
	}{
		{"not found", apperr.NotFound("lead not found"), http.StatusNotFound, "", `{"error":"lead not found"}`},
		{"retryable", apperr.Unavailable("busy").WithRetryAfter(1500 * time.Millisecond), http.StatusServiceUnavailable, "2", `{"error":"busy"}`},
		{"untyped", errors.New("pq: connection refused"), http.StatusInternalServerError, "", `{"error":"internal server error"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			if !HandleError(c, tc.err) {
				t.Fatal("expected the error to be handled")
			}
			if rec.Code != tc.status || rec.Header().Get("Retry-After") != tc.retryAfter || rec.Body.String() != tc.body {
				t.Fatalf("got %d %q %s", rec.Code, rec.Header().Get("Retry-After"), rec.Body.String())
			}
		})
	}

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	if HandleError(c, nil) {
		t.Fatal("expected nil to be ignored")
	}
}
