package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// requestDuration measures server round trips.
	// Labels: endpoint, status (HTTP status code or "transport")
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hed",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "Server request latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint", "status"})

	// operationsSubmitted counts operations sent in batches.
	// Labels: type (create, update, delete), result (success, failure)
	operationsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hed",
		Subsystem: "api",
		Name:      "operations_total",
		Help:      "Entity operations submitted, by outcome",
	}, []string{"type", "result"})
)

func observeRequest(endpoint, status string, start time.Time) {
	requestDuration.WithLabelValues(endpoint, status).Observe(time.Since(start).Seconds())
}
