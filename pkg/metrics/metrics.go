package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contactbook_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "contactbook_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	bulkRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contactbook_bulk_rows_total",
		Help: "Bulk upload rows by outcome status",
	}, []string{"status"})

	bulkDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "contactbook_bulk_upload_duration_seconds",
		Help:    "Duration of bulk uploads",
		Buckets: prometheus.DefBuckets,
	}, []string{"format"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveBulkRows adds n rows with the given outcome status.
func ObserveBulkRows(status string, n int) {
	if n <= 0 {
		return
	}
	bulkRows.WithLabelValues(status).Add(float64(n))
}

// ObserveBulkUpload records how long one upload took.
func ObserveBulkUpload(format string, duration time.Duration) {
	bulkDuration.WithLabelValues(format).Observe(duration.Seconds())
}

// HTTPMetricsMiddleware instruments requests with Prometheus metrics.
// The route pattern is used as the path label to keep cardinality bounded.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		ObserveHTTPRequest(r.Method, path, strconv.Itoa(ww.status), time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
