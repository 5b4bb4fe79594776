package utils

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "viewlog",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "viewlog",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	ViewsRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "viewlog",
			Subsystem: "views",
			Name:      "recorded_total",
			Help:      "Attendance records written.",
		},
	)

	ReportsRendered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "viewlog",
			Subsystem: "reports",
			Name:      "rendered_total",
			Help:      "Reports produced, by format and outcome.",
		},
		[]string{"format", "result"},
	)
)

func init() {
	Registry.MustRegister(
		HTTPRequests,
		HTTPDuration,
		ViewsRecorded,
		ReportsRendered,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// MetricsHandler exposes the registered collectors.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordReport counts one report attempt.
func RecordReport(format string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	ReportsRendered.WithLabelValues(format, result).Inc()
}
