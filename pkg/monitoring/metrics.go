package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector handles Prometheus metrics collection
type MetricsCollector struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP request metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Database metrics
	dbQueryDuration *prometheus.HistogramVec

	// Authentication metrics
	authAttemptsTotal *prometheus.CounterVec

	// Permission metrics
	permissionFetchesTotal  *prometheus.CounterVec
	permissionFetchDuration *prometheus.HistogramVec
	permissionSavesTotal    *prometheus.CounterVec
	accessDecisionsTotal    *prometheus.CounterVec
	activeSessions          *prometheus.GaugeVec

	// Quota metrics
	quotaBlocksTotal *prometheus.CounterVec
	quotaResetsTotal *prometheus.CounterVec

	// Audit log metrics
	auditEventsTotal *prometheus.CounterVec

	// System metrics
	systemErrors *prometheus.CounterVec
}

// NewMetricsCollector creates a new metrics collector. A nil registry gets a
// fresh one so that several collectors can coexist in one process (tests).
func NewMetricsCollector(serviceName string, registry *prometheus.Registry) *MetricsCollector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &MetricsCollector{
		serviceName: serviceName,
		registry:    registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code", "service"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint", "service"},
		),
		dbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "db_query_duration_seconds",
				Help:    "Duration of database queries in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0},
			},
			[]string{"query_type", "service"},
		),
		authAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_attempts_total",
				Help: "Total number of authentication attempts",
			},
			[]string{"method", "status", "service"},
		),
		permissionFetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "permission_fetches_total",
				Help: "Total number of permission record fetches",
			},
			[]string{"status", "service"},
		),
		permissionFetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "permission_fetch_duration_seconds",
				Help:    "Duration of permission record fetches in seconds",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"service"},
		),
		permissionSavesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "permission_saves_total",
				Help: "Total number of permission record replacements",
			},
			[]string{"status", "service"},
		),
		accessDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "access_decisions_total",
				Help: "Total number of gated view decisions",
			},
			[]string{"reason", "service"},
		),
		activeSessions: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "active_sessions",
				Help: "Number of cached permission sessions",
			},
			[]string{"service"},
		),
		quotaBlocksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quota_blocks_total",
				Help: "Total number of user creations blocked by quota",
			},
			[]string{"role", "service"},
		),
		quotaResetsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quota_resets_total",
				Help: "Total number of quota usage counters reset",
			},
			[]string{"service"},
		),
		auditEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_events_total",
				Help: "Total number of audit events",
			},
			[]string{"event_type", "success", "service"},
		),
		systemErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "system_errors_total",
				Help: "Total number of system errors",
			},
			[]string{"error_type", "service", "component"},
		),
	}

	// Register metrics
	registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.dbQueryDuration,
		m.authAttemptsTotal,
		m.permissionFetchesTotal,
		m.permissionFetchDuration,
		m.permissionSavesTotal,
		m.accessDecisionsTotal,
		m.activeSessions,
		m.quotaBlocksTotal,
		m.quotaResetsTotal,
		m.auditEventsTotal,
		m.systemErrors,
	)

	return m
}

// Registry exposes the underlying registry
func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records HTTP request metrics
func (m *MetricsCollector) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, statusCode, m.serviceName).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint, m.serviceName).Observe(duration.Seconds())
}

// RecordDBQuery records database query metrics
func (m *MetricsCollector) RecordDBQuery(queryType string, duration time.Duration) {
	m.dbQueryDuration.WithLabelValues(queryType, m.serviceName).Observe(duration.Seconds())
}

// RecordAuthAttempt records authentication attempt metrics
func (m *MetricsCollector) RecordAuthAttempt(method, status string) {
	m.authAttemptsTotal.WithLabelValues(method, status, m.serviceName).Inc()
}

// RecordPermissionFetch records a permission record fetch and its outcome
func (m *MetricsCollector) RecordPermissionFetch(status string, duration time.Duration) {
	m.permissionFetchesTotal.WithLabelValues(status, m.serviceName).Inc()
	m.permissionFetchDuration.WithLabelValues(m.serviceName).Observe(duration.Seconds())
}

// RecordPermissionSave records a permission record replacement
func (m *MetricsCollector) RecordPermissionSave(status string) {
	m.permissionSavesTotal.WithLabelValues(status, m.serviceName).Inc()
}

// RecordAccessDecision records a gating decision by reason
func (m *MetricsCollector) RecordAccessDecision(reason string) {
	m.accessDecisionsTotal.WithLabelValues(reason, m.serviceName).Inc()
}

// SetActiveSessions sets the number of cached sessions
func (m *MetricsCollector) SetActiveSessions(n int) {
	m.activeSessions.WithLabelValues(m.serviceName).Set(float64(n))
}

// RecordQuotaBlock records a user creation refused by quota
func (m *MetricsCollector) RecordQuotaBlock(role string) {
	m.quotaBlocksTotal.WithLabelValues(role, m.serviceName).Inc()
}

// RecordQuotaResets records the number of quotas reset by one run
func (m *MetricsCollector) RecordQuotaResets(n int) {
	m.quotaResetsTotal.WithLabelValues(m.serviceName).Add(float64(n))
}

// RecordAuditEvent records audit event metrics
func (m *MetricsCollector) RecordAuditEvent(eventType string, success bool) {
	successStr := strconv.FormatBool(success)
	m.auditEventsTotal.WithLabelValues(eventType, successStr, m.serviceName).Inc()
}

// RecordSystemError records system error metrics
func (m *MetricsCollector) RecordSystemError(errorType, component string) {
	m.systemErrors.WithLabelValues(errorType, m.serviceName, component).Inc()
}

// Handler returns the Prometheus metrics HTTP handler
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
