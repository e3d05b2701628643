package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/R3E-Network/paneladmin/pkg/logger"
)

// HTTPRecorder receives per-request measurements.
type HTTPRecorder interface {
	IncrementInFlight()
	DecrementInFlight()
	RecordHTTPRequest(method, path, status string, duration time.Duration)
}

// MetricsMiddleware records HTTP metrics for each request
type MetricsMiddleware struct {
	recorder HTTPRecorder
}

// NewMetricsMiddleware creates a new metrics middleware
func NewMetricsMiddleware(recorder HTTPRecorder) *MetricsMiddleware {
	return &MetricsMiddleware{recorder: recorder}
}

func (m *MetricsMiddleware) Name() string { return "metrics" }

// Middleware returns the metrics middleware handler
func (m *MetricsMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		m.recorder.IncrementInFlight()
		defer m.recorder.DecrementInFlight()

		wrapped := wrapResponseWriter(w)
		next.ServeHTTP(wrapped, r)

		// the chain runs outside the router, so the raw path is recorded and
		// the recorder collapses identifiers
		m.recorder.RecordHTTPRequest(r.Method, r.URL.Path, strconv.Itoa(wrapped.statusCode), time.Since(start))
	})
}

// AccessLogMiddleware logs HTTP requests with trace ID
type AccessLogMiddleware struct {
	logger *logger.Logger
}

// NewAccessLogMiddleware creates a new access log middleware
func NewAccessLogMiddleware(log *logger.Logger) *AccessLogMiddleware {
	return &AccessLogMiddleware{logger: log}
}

func (m *AccessLogMiddleware) Name() string { return "accesslog" }

// Middleware returns the access log middleware handler
func (m *AccessLogMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := wrapResponseWriter(w)

		next.ServeHTTP(wrapped, r)

		m.logger.LogRequest(r.Context(), r.Method, r.URL.Path, wrapped.statusCode, time.Since(start))
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }
