package metrics

import "time"

// Recorder is the metrics interface the services depend on. Production wiring
// uses the Prometheus-backed Metrics; tests and metrics-disabled deployments
// use NoopMetrics.
type Recorder interface {
	// Grant and token lifecycle
	RecordTokenIssued(tokenType, grantType string, generationTime time.Duration)
	RecordTokenRevoked(tokenType, reason string)
	RecordTokenRefresh(success bool)
	RecordIntrospection(result string, duration time.Duration)

	// UMA permission flow
	RecordTicketRegistered(success bool)
	RecordTicketExchange(result string)

	// Expiry sweep
	RecordSweep(tokensDeleted, ticketsExpired, grantsDeleted int64, duration time.Duration)

	// Gauge setters, updated periodically from store counts
	SetActiveTokensCount(tokenType string, count int)
	SetActiveTicketsCount(count int)

	// Database errors observed during metric collection
	RecordDatabaseQueryError(operation string)
}
