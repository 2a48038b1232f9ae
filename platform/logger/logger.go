// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey string

const (
	// RequestIDKey carries the inbound request id on a context.
	RequestIDKey contextKey = "request_id"
	// TenantIDKey carries the caller's tenant id on a context.
	TenantIDKey contextKey = "tenant_id"
)

// Logger wraps slog.Logger with the service's event helpers.
type Logger struct {
	*slog.Logger
}

// New creates a logger for env: text at debug level in development, JSON at
// info level everywhere else.
func New(env string) *Logger {
	return NewWithWriter(env, os.Stdout)
}

// NewWithWriter is New writing to w.
func NewWithWriter(env string, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var handler slog.Handler
	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return &Logger{Logger: slog.New(handler)}
}

// WithContext returns a logger carrying the request and tenant ids found on ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}
	var attrs []any
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		attrs = append(attrs, slog.String("requestId", requestID))
	}
	if tenantID, ok := ctx.Value(TenantIDKey).(string); ok && tenantID != "" {
		attrs = append(attrs, slog.String("tenantId", tenantID))
	}
	if len(attrs) == 0 {
		return l
	}
	return &Logger{Logger: l.With(attrs...)}
}

// HTTPRequest logs a served request. route is the matched pattern, not the raw path.
func (l *Logger) HTTPRequest(method, route string, status int, latencyMs float64, clientIP string) {
	level := slog.LevelInfo
	if status >= 500 {
		level = slog.LevelError
	}
	l.Log(context.Background(), level, "http_request",
		slog.String("method", method),
		slog.String("route", route),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// HTTPError logs an error recorded on a request.
func (l *Logger) HTTPError(method, route string, status int, err error) {
	l.Error("http_error",
		slog.String("method", method),
		slog.String("route", route),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)
}

// LeadEvent logs a lead lifecycle fact (created, matched, assigned) with its identifiers.
func (l *Logger) LeadEvent(event string, tenantID, leadID string, attrs ...any) {
	args := append([]any{
		slog.String("tenantId", tenantID),
		slog.String("leadId", leadID),
	}, attrs...)
	l.Info(event, args...)
}

// DegradedAssignment logs that no agent could be chosen for a lead.
func (l *Logger) DegradedAssignment(tenantID, leadID, city, department string) {
	l.Warn("lead_assignment_degraded",
		slog.String("tenantId", tenantID),
		slog.String("leadId", leadID),
		slog.String("city", city),
		slog.String("department", department),
	)
}

// RateLimitExceeded logs a rejected request.
func (l *Logger) RateLimitExceeded(clientIP, route string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("route", route),
	)
}
