package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Billing pipeline metrics
	pipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_pipeline_runs_total",
			Help: "Total number of billing pipeline runs",
		},
		[]string{"outcome"},
	)

	pipelineStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "billing_pipeline_stage_duration_seconds",
			Help:    "Duration of billing pipeline stages in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0},
		},
		[]string{"stage"},
	)

	pipelineStageHalts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_pipeline_stage_halts_total",
			Help: "Total number of pipeline halts by stage",
		},
		[]string{"stage"},
	)

	// Authorization metrics
	permissionChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "permission_checks_total",
			Help: "Total number of permission checks",
		},
		[]string{"permission", "role", "allowed"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		pipelineRunsTotal,
		pipelineStageDuration,
		pipelineStageHalts,
		permissionChecksTotal,
	)
}

// RecordPipelineRun records the outcome of one pipeline run
func RecordPipelineRun(success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	pipelineRunsTotal.WithLabelValues(outcome).Inc()
}

// RecordStageDuration records how long a pipeline stage took
func RecordStageDuration(stage string, duration time.Duration) {
	pipelineStageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordStageHalt records a pipeline halt at the given stage
func RecordStageHalt(stage string) {
	pipelineStageHalts.WithLabelValues(stage).Inc()
}

// RecordPermissionCheck records the result of a permission check
func RecordPermissionCheck(permission, role string, allowed bool) {
	permissionChecksTotal.WithLabelValues(permission, role, strconv.FormatBool(allowed)).Inc()
}

// MetricsHandler returns the Prometheus metrics HTTP handler
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// statusRecorder captures the response status code for metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware records request count and duration per endpoint
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		duration := time.Since(start)
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(recorder.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration.Seconds())
	})
}
