// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gapscout_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gapscout_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Recommendation pipeline
	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gapscout_recommend_duration_seconds",
			Help:    "Duration of a recommendation query in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	RecommendCandidates = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gapscout_recommend_candidates",
			Help:    "Number of areas surviving each pipeline stage",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		},
		[]string{"stage"}, // "filtered", "diversified"
	)

	// Survival predictor
	PredictorCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gapscout_predictor_calls_total",
			Help: "Total number of survival predictor calls",
		},
		[]string{"provider", "result"}, // "success", "failure", "rejected"
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gapscout_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gapscout_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Batch
	ProfilesBuilt = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gapscout_profiles_built",
			Help: "Number of area profiles produced by the last batch run",
		},
	)

	SnapshotProfiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gapscout_snapshot_profiles",
			Help: "Number of area profiles in the served snapshot",
		},
	)
)

// RecordAPIRequest records one served request.
func RecordAPIRequest(method, route string, status int, d time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
