package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Metrics holds all Prometheus metrics for the API
type Metrics struct {
	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight *prometheus.GaugeVec

	// Codec metrics
	codecOperationsTotal   *prometheus.CounterVec
	codecOperationDuration *prometheus.HistogramVec
	codecBytesTotal        *prometheus.CounterVec
	decodeErrorsTotal      *prometheus.CounterVec

	// Catalog metrics
	catalogOperationsTotal *prometheus.CounterVec
	catalogEntries         prometheus.Gauge

	authRequestsTotal *prometheus.CounterVec
}

// NewMetrics creates all Prometheus metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assetreg_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "assetreg_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		httpRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "assetreg_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"method", "endpoint"},
		),

		codecOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assetreg_codec_operations_total",
				Help: "Total number of container decode and encode operations",
			},
			[]string{"operation", "status"},
		),

		codecOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "assetreg_codec_operation_duration_seconds",
				Help:    "Container decode and encode duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		codecBytesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assetreg_codec_bytes_total",
				Help: "Total container bytes processed",
			},
			[]string{"operation"},
		),

		decodeErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assetreg_decode_errors_total",
				Help: "Decode failures by error kind",
			},
			[]string{"kind"},
		),

		catalogOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assetreg_catalog_operations_total",
				Help: "Total number of catalog operations",
			},
			[]string{"operation", "status"},
		),

		catalogEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "assetreg_catalog_entries",
				Help: "Number of registries stored in the catalog",
			},
		),

		authRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assetreg_auth_requests_total",
				Help: "Total number of authentication requests",
			},
			[]string{"status"},
		),
	}
}

func statusLabel(success bool) string {
	if success {
		return statusSuccess
	}
	return statusError
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordCodecOperation records one decode or encode. kind is the codec error
// kind for failed decodes and is ignored otherwise.
func (m *Metrics) RecordCodecOperation(operation string, size int, kind string, success bool, duration time.Duration) {
	m.codecOperationsTotal.WithLabelValues(operation, statusLabel(success)).Inc()
	m.codecOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	m.codecBytesTotal.WithLabelValues(operation).Add(float64(size))
	if !success && operation == "decode" {
		m.decodeErrorsTotal.WithLabelValues(kind).Inc()
	}
}

// RecordCatalogOperation records a catalog operation
func (m *Metrics) RecordCatalogOperation(operation string, success bool) {
	m.catalogOperationsTotal.WithLabelValues(operation, statusLabel(success)).Inc()
}

// SetCatalogEntries updates the catalog size gauge
func (m *Metrics) SetCatalogEntries(n int) {
	m.catalogEntries.Set(float64(n))
}

// RecordAuthRequest records an authentication request
func (m *Metrics) RecordAuthRequest(success bool) {
	m.authRequestsTotal.WithLabelValues(statusLabel(success)).Inc()
}

// InstrumentHandler instruments an HTTP handler with metrics
func (m *Metrics) InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		gauge := m.httpRequestsInFlight.WithLabelValues(method, endpoint)
		gauge.Inc()
		defer gauge.Dec()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(rw, r)

		m.RecordHTTPRequest(method, endpoint, rw.statusCode, time.Since(start))
	}
}

// InstrumentAuthMiddleware counts authentication outcomes of next.
func (m *Metrics) InstrumentAuthMiddleware(next func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next(h).ServeHTTP(rw, r)
			m.RecordAuthRequest(rw.statusCode != http.StatusUnauthorized)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
