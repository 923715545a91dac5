// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersRegistered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_registered_total",
			Help: "Total number of registered orders",
		},
		[]string{"source", "status"}, // source: kafka, api; status: success, error, validation_error
	)

	CandidatePlanningTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "candidate_planning_seconds",
			Help:    "Time spent matching and ranking restaurants for a batch of orders",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"stage"}, // stage: match, resolve, rank
	)

	PlaceLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "place_lookups_total",
			Help: "Geocode cache lookups",
		},
		[]string{"result"}, // result: hit, stale, miss, store_error
	)

	PlaceStoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "place_store_operations_total",
			Help: "Place store operations by backend",
		},
		[]string{"backend", "operation", "status"},
	)

	GeocodeRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocode_requests_total",
			Help: "Outbound geocoder requests",
		},
		[]string{"result"}, // result: success, not_found, error
	)

	DBOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_operations_total",
			Help: "Total database operations",
		},
		[]string{"operation", "status"},
	)

	DBOperationTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_operation_seconds",
			Help:    "Time spent in database operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"operation"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPResponseTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_time_seconds",
			Help:    "HTTP response time",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "path"},
	)
)
