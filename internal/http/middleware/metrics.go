// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file exposes Prometheus instrumentation for HTTP traffic. Labels are
// chosen to keep cardinality bounded:
//
//   - method: HTTP verb
//   - path:   the registered Gin route (e.g. /api/v1/chats/:id/messages);
//     falls back to the raw URL path when no route matched
//   - status: numeric status code as a string
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// httpReqs counts requests by method, route path, and status code.
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	// httpLat records request duration in seconds by method and route path.
	// Status is omitted to keep histogram cardinality lower.
	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// httpInflight gauges the number of currently processing requests.
	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	// uploadSize captures document upload sizes in bytes. Buckets span typical
	// contract PDFs, from a few KiB up to the configured upload cap.
	uploadSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "document_upload_size_bytes",
			Help: "Size of uploaded documents in bytes.",
			Buckets: []float64{
				1 << 10, 10 << 10, 50 << 10, 100 << 10,
				500 << 10, 1 << 20, 2 << 20, 5 << 20, 10 << 20,
			},
		},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, uploadSize)
}

// Metrics returns a Gin middleware that instruments requests with Prometheus.
//
// Usage:
//
//	r := gin.New()
//	r.Use(middleware.Metrics())
//	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
//
// The "path" label uses the registered route (c.FullPath()) to avoid unbounded
// cardinality from raw URLs; when no route matched (e.g. 404) it falls back to
// c.Request.URL.Path. Document uploads additionally record their body size.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		dur := time.Since(start).Seconds()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		httpReqs.WithLabelValues(method, path, status).Inc()
		httpLat.WithLabelValues(method, path).Observe(dur)

		if method == "POST" && c.Request.ContentLength > 0 && isUploadRoute(path) {
			uploadSize.Observe(float64(c.Request.ContentLength))
		}
	}
}

// isUploadRoute reports whether the matched route accepts document uploads.
func isUploadRoute(path string) bool {
	return len(path) >= len("/documents/analyze") &&
		path[len(path)-len("/documents/analyze"):] == "/documents/analyze"
}
