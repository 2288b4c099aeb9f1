package monitoring

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/TanzeemAgra/Healthcare-sub004/pkg/logger"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/types"
)

// RequestIDHeader carries the request correlation id
const RequestIDHeader = "X-Request-ID"

// MonitoringMiddleware combines metrics, tracing, and logging
type MonitoringMiddleware struct {
	metrics *MetricsCollector
	tracing *TracingManager
	logger  *logger.Logger
}

// NewMonitoringMiddleware creates a new monitoring middleware
func NewMonitoringMiddleware(metrics *MetricsCollector, tracing *TracingManager, log *logger.Logger) *MonitoringMiddleware {
	if tracing == nil {
		tracing = NewNoopTracingManager("")
	}
	return &MonitoringMiddleware{
		metrics: metrics,
		tracing: tracing,
		logger:  log,
	}
}

// HTTPMiddleware instruments a gorilla/mux router; routes are labelled by
// their path template to keep metric cardinality bounded
func (mm *MonitoringMiddleware) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		route := routeTemplate(r)

		ctx := logger.ContextWithRequestID(r.Context(), requestID)
		ctx = mm.tracing.Extract(ctx, propagation.HeaderCarrier(r.Header))
		ctx, span := mm.tracing.StartHTTPSpan(ctx, r.Method, route)
		defer span.End()

		wrapper := &monitoringResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		wrapper.Header().Set(RequestIDHeader, requestID)
		mm.tracing.Inject(ctx, propagation.HeaderCarrier(wrapper.Header()))

		next.ServeHTTP(wrapper, r.WithContext(ctx))

		mm.finish(ctx, span, r.Method, route, r.UserAgent(), r.RemoteAddr, wrapper.statusCode, wrapper.bytesWritten, start)
	})
}

// GinMiddleware is the gin flavour of HTTPMiddleware
func (mm *MonitoringMiddleware) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		ctx := logger.ContextWithRequestID(c.Request.Context(), requestID)
		ctx = mm.tracing.Extract(ctx, propagation.HeaderCarrier(c.Request.Header))
		ctx, span := mm.tracing.StartHTTPSpan(ctx, c.Request.Method, route)
		defer span.End()

		c.Header(RequestIDHeader, requestID)
		c.Set("request_id", requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		mm.finish(ctx, span, c.Request.Method, route, c.Request.UserAgent(), c.ClientIP(), c.Writer.Status(), int64(c.Writer.Size()), start)
	}
}

func (mm *MonitoringMiddleware) finish(ctx context.Context, span trace.Span, method, route, userAgent, clientIP string, status int, written int64, start time.Time) {
	duration := time.Since(start)

	if mm.metrics != nil {
		mm.metrics.RecordHTTPRequest(method, route, strconv.Itoa(status), duration)
	}

	span.SetAttributes(
		semconv.HTTPResponseStatusCode(status),
		attribute.Int64("http.response_size", written),
	)
	if status >= 500 {
		span.SetStatus(codes.Error, http.StatusText(status))
	}

	if mm.logger != nil {
		mm.logger.HTTPRequest(ctx, method, route, userAgent, clientIP, status, duration.Milliseconds())
	}
}

// DatabaseMiddleware creates middleware for database operations
func (mm *MonitoringMiddleware) DatabaseMiddleware(operation, table string) func(context.Context, func(context.Context) error) error {
	return func(ctx context.Context, dbFunc func(context.Context) error) error {
		start := time.Now()

		ctx, span := mm.tracing.StartDatabaseSpan(ctx, operation, table)
		defer span.End()

		err := dbFunc(ctx)

		if mm.metrics != nil {
			mm.metrics.RecordDBQuery(operation, time.Since(start))
		}

		if err != nil {
			mm.tracing.RecordError(span, err)
			if mm.metrics != nil && !isRejection(err) {
				mm.metrics.RecordSystemError("database_error", "database")
			}
		}

		return err
	}
}

// isRejection reports typed domain refusals such as a quota block raised
// inside a transaction; they are not storage faults
func isRejection(err error) bool {
	var accessErr *types.AccessError
	return errors.As(err, &accessErr) && accessErr.Type != types.ErrorTypeInternal && accessErr.Type != types.ErrorTypeExternal
}

// AuthMiddleware creates middleware for authentication operations
func (mm *MonitoringMiddleware) AuthMiddleware(method string) func(context.Context, func(context.Context) error) error {
	return func(ctx context.Context, authFunc func(context.Context) error) error {
		ctx, span := mm.tracing.StartAuthSpan(ctx, method)
		defer span.End()

		err := authFunc(ctx)

		status := "success"
		if err != nil {
			status = "failed"
			mm.tracing.RecordError(span, err)
		}
		if mm.metrics != nil {
			mm.metrics.RecordAuthAttempt(method, status)
		}
		span.SetAttributes(attribute.String("auth.status", status))

		return err
	}
}

// monitoringResponseWriter wraps http.ResponseWriter to capture metrics
type monitoringResponseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

func (mrw *monitoringResponseWriter) WriteHeader(code int) {
	if !mrw.wroteHeader {
		mrw.statusCode = code
		mrw.wroteHeader = true
	}
	mrw.ResponseWriter.WriteHeader(code)
}

func (mrw *monitoringResponseWriter) Write(b []byte) (int, error) {
	mrw.wroteHeader = true
	n, err := mrw.ResponseWriter.Write(b)
	mrw.bytesWritten += int64(n)
	return n, err
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
