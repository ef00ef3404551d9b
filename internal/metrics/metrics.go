package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Token Lifecycle Metrics
	TokensIssuedTotal       *prometheus.CounterVec
	TokensRevokedTotal      *prometheus.CounterVec
	TokensRefreshedTotal    *prometheus.CounterVec
	TokensActive            *prometheus.GaugeVec
	TokenGenerationDuration prometheus.Histogram

	// Introspection Metrics
	IntrospectionTotal    *prometheus.CounterVec
	IntrospectionDuration prometheus.Histogram

	// UMA Permission Metrics
	TicketsRegisteredTotal *prometheus.CounterVec
	TicketExchangeTotal    *prometheus.CounterVec
	TicketsActive          prometheus.Gauge

	// Expiry Sweep Metrics
	SweepRunsTotal           prometheus.Counter
	SweepTokensDeletedTotal  prometheus.Counter
	SweepTicketsExpiredTotal prometheus.Counter
	SweepGrantsDeletedTotal  prometheus.Counter
	SweepDuration            prometheus.Histogram

	// HTTP Request Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Database Query Metrics
	DatabaseQueryErrorsTotal *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init initializes metrics based on enabled flag
// If enabled=true, returns Prometheus-based Metrics
// If enabled=false, returns NoopMetrics (zero overhead)
// Uses sync.Once to ensure Prometheus metrics are only registered once
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

// initMetrics creates and registers all Prometheus metrics
func initMetrics() *Metrics {
	m := &Metrics{
		// Token Lifecycle Metrics
		TokensIssuedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_tokens_issued_total",
				Help: "Total number of tokens issued",
			},
			[]string{
				"token_type",
				"grant_type",
			}, // token_type: access_token, refresh_token, id_token; grant_type per RFC 6749
		),
		TokensRevokedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_tokens_revoked_total",
				Help: "Total number of tokens revoked",
			},
			[]string{"reason"}, // client_request, rotation, cascade, sweep
		),
		TokensRefreshedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_tokens_refreshed_total",
				Help: "Total number of token refresh attempts",
			},
			[]string{"result"}, // success, error
		),
		TokensActive: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "oauth_tokens_active",
				Help: "Current number of live tokens by type",
			},
			[]string{"token_type"},
		),
		TokenGenerationDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "oauth_token_generation_duration_seconds",
				Help:    "Time taken to mint and persist tokens",
				Buckets: prometheus.DefBuckets,
			},
		),

		// Introspection Metrics
		IntrospectionTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_introspection_total",
				Help: "Total number of token introspection requests",
			},
			[]string{"result"}, // active, inactive, denied
		),
		IntrospectionDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "oauth_introspection_duration_seconds",
				Help:    "Time taken to resolve an introspection request",
				Buckets: prometheus.DefBuckets,
			},
		),

		// UMA Permission Metrics
		TicketsRegisteredTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uma_tickets_registered_total",
				Help: "Total number of permission tickets registered",
			},
			[]string{"result"}, // success, error
		),
		TicketExchangeTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uma_ticket_exchange_total",
				Help: "Total number of ticket exchange attempts",
			},
			[]string{"result"}, // success, consumed, expired, invalid
		),
		TicketsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "uma_tickets_active",
				Help: "Current number of issued, unconsumed tickets",
			},
		),

		// Expiry Sweep Metrics
		SweepRunsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "expiry_sweep_runs_total",
				Help: "Total number of expiry sweep runs",
			},
		),
		SweepTokensDeletedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "expiry_sweep_tokens_deleted_total",
				Help: "Total number of expired tokens deleted by the sweep",
			},
		),
		SweepTicketsExpiredTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "expiry_sweep_tickets_expired_total",
				Help: "Total number of tickets transitioned to expired by the sweep",
			},
		),
		SweepGrantsDeletedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "expiry_sweep_grants_deleted_total",
				Help: "Total number of orphaned grants deleted by the sweep",
			},
		),
		SweepDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "expiry_sweep_duration_seconds",
				Help:    "Duration of a full sweep pass",
				Buckets: prometheus.DefBuckets,
			},
		),

		// HTTP Request Metrics
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "http_request_duration_seconds",
				Help: "HTTP request latency in seconds",
				Buckets: []float64{
					0.001,
					0.005,
					0.010,
					0.025,
					0.050,
					0.100,
					0.250,
					0.500,
					1.0,
					2.5,
					5.0,
					10.0,
				},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being served",
			},
		),

		// Database Query Metrics
		DatabaseQueryErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "database_query_errors_total",
				Help: "Total number of database query errors during metric collection",
			},
			[]string{"operation"}, // count_tokens, count_tickets
		),
	}

	return m
}
