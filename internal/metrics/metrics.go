package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zaalplanner",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status.",
		},
		[]string{"endpoint", "status"},
	)

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "zaalplanner",
			Name:      "bookings_created_total",
			Help:      "Bookings persisted, including series occurrences.",
		},
	)

	bookingConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zaalplanner",
			Name:      "booking_conflicts_total",
			Help:      "Room conflicts detected, by operation.",
		},
		[]string{"operation"},
	)

	seriesReplacements = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "zaalplanner",
			Name:      "series_replacements_total",
			Help:      "Whole-series regenerations applied.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookingsCreated, bookingConflicts, seriesReplacements)
	})
}

// IncHTTP increments the request counter for an endpoint/status pair.
func IncHTTP(endpoint, status string) {
	httpRequests.WithLabelValues(endpoint, status).Inc()
}

// IncBookingsCreated counts n persisted bookings.
func IncBookingsCreated(n int) {
	bookingsCreated.Add(float64(n))
}

// IncConflicts counts detected room conflicts for an operation label.
func IncConflicts(operation string, n int) {
	bookingConflicts.WithLabelValues(operation).Add(float64(n))
}

// IncSeriesReplacements counts one applied series regeneration.
func IncSeriesReplacements() {
	seriesReplacements.Inc()
}
