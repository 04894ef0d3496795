package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fuelcoach_api_requests_total",
			Help: "Total number of API calls by method and outcome",
		},
		[]string{"method", "outcome"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fuelcoach_api_request_duration_seconds",
			Help:    "API call latency in seconds, including refresh and retry",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"method"},
	)

	TokenRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fuelcoach_token_refreshes_total",
			Help: "Token refresh attempts by result",
		},
		[]string{"result"},
	)

	SessionInvalidationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fuelcoach_session_invalidations_total",
			Help: "Number of times stored credentials were discarded after a failed refresh",
		},
	)

	OfflineQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fuelcoach_offline_queue_depth",
			Help: "Mutations currently waiting in the offline queue",
		},
	)

	OfflineMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fuelcoach_offline_mutations_total",
			Help: "Offline queue events (queued, replayed, failed, dropped)",
		},
		[]string{"event"},
	)

	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fuelcoach_uploads_total",
			Help: "Upload reference resolutions by source shape and result",
		},
		[]string{"source", "result"},
	)

	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fuelcoach_storage_operations_total",
			Help: "Local storage operations by backend, operation and result",
		},
		[]string{"backend", "op", "result"},
	)

	StorageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fuelcoach_storage_operation_duration_seconds",
			Help:    "Local storage operation latency in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"backend", "op"},
	)
)
