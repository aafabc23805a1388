// Package metrics exposes Prometheus instruments for the outreach lifecycle,
// the follow-up sweep and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "outreach_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_transitions_total",
			Help: "Committed status transitions by target status",
		},
		[]string{"status"},
	)

	spawnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_spawns_total",
			Help: "Child record spawn attempts by stage and result",
		},
		[]string{"stage", "result"},
	)

	collaboratorErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_collaborator_errors_total",
			Help: "Failures of content, reply and notification collaborators",
		},
		[]string{"collaborator"},
	)

	sweepRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_sweep_runs_total",
			Help: "Follow-up sweep passes by outcome",
		},
		[]string{"outcome"},
	)

	sweepRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_sweep_records_total",
			Help: "Records handled by the sweep by action",
		},
		[]string{"action"},
	)

	sweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "outreach_sweep_duration_seconds",
			Help:    "Duration of a follow-up sweep pass",
			Buckets: prometheus.DefBuckets,
		},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latency labelled by chi route
// pattern, so path parameters don't explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func RecordTransition(status string) {
	transitionsTotal.WithLabelValues(status).Inc()
}

// RecordSpawn counts a spawn attempt. result is one of created, existing,
// skipped or failed.
func RecordSpawn(stage, result string) {
	spawnsTotal.WithLabelValues(stage, result).Inc()
}

func RecordCollaboratorError(collaborator string) {
	collaboratorErrors.WithLabelValues(collaborator).Inc()
}

func RecordSweep(outcome string, d time.Duration) {
	sweepRuns.WithLabelValues(outcome).Inc()
	sweepDuration.Observe(d.Seconds())
}

func RecordSweepRecords(action string, n int) {
	if n > 0 {
		sweepRecords.WithLabelValues(action).Add(float64(n))
	}
}
