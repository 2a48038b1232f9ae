// Package metrics declares the prometheus collectors exported by the service.
// This is part of the platform layer and contains no business logic.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	LeadsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_created_total",
			Help: "Leads created, by source channel",
		},
		[]string{"source"},
	)

	LeadsMatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_matched_total",
			Help: "Inbound contacts resolved to an existing lead, by match kind",
		},
		[]string{"kind"},
	)

	Assignments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_assignment_total",
			Help: "Leads assigned to an agent, by strategy",
		},
		[]string{"strategy"},
	)

	DegradedAssignments = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lead_assignment_degraded_total",
			Help: "Leads left unassigned because no eligible agent was found",
		},
	)

	LockContention = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_creation_lock_contention_total",
			Help: "Creation lock contention outcomes (matched, acquired_on_retry, gave_up)",
		},
		[]string{"outcome"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Served HTTP requests by method, matched route and status",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	ImportRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_import_rows_total",
			Help: "Bulk import rows by outcome (created, duplicate, existing, failed)",
		},
		[]string{"outcome"},
	)

	ScheduledTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_tasks_total",
			Help: "Background tasks handled by the worker, by task type and outcome",
		},
		[]string{"type", "outcome"},
	)
)

// ObserveHTTPRequest records one served request.
func ObserveHTTPRequest(method, route string, status int, latency time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(latency.Seconds())
}

// Handler exposes the default registry for scraping.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
