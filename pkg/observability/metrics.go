// Package observability provides Prometheus metrics, the response monitor
// notified after every response cycle, and HTTP middleware for the bote
// server.
package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ResponsesTotal counts completed response cycles by method, route
	// pattern and status class.
	ResponsesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bote_responses_total",
			Help: "Completed response cycles",
		},
		[]string{"method", "route", "status"},
	)

	// ResponseDuration records the time from routing to the last body
	// message in seconds.
	ResponseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bote_response_duration_seconds",
			Help:    "Response cycle duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// HTTPRequestsTotal counts every HTTP request, including operational
	// endpoints, by method and status class.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bote_http_requests_total",
			Help: "HTTP requests",
		},
		[]string{"method", "status"},
	)

	// StreamsActive tracks responses that are being streamed.
	StreamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bote_streams_active",
			Help: "Active streaming responses",
		},
	)
)

func init() {
	prometheus.MustRegister(
		ResponsesTotal,
		ResponseDuration,
		HTTPRequestsTotal,
		StreamsActive,
	)
}

// statusClass builds a label like "2xx". Codes that HTTP cannot carry are
// labelled "invalid".
func statusClass(status int) string {
	if status < 100 || status > 999 {
		return "invalid"
	}
	return strconv.Itoa(status/100) + "xx"
}
