package metrics

import "time"

// NoopMetrics is a no-operation implementation of Recorder
// All methods are empty and do nothing, providing zero overhead when metrics are disabled
type NoopMetrics struct{}

// Ensure NoopMetrics implements Recorder interface at compile time
var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

// Token lifecycle - noop implementations
func (n *NoopMetrics) RecordTokenIssued(tokenType, grantType string, generationTime time.Duration) {
}
func (n *NoopMetrics) RecordTokenRevoked(tokenType, reason string) {}
func (n *NoopMetrics) RecordTokenRefresh(success bool)            {}

// Introspection - noop implementations
func (n *NoopMetrics) RecordIntrospection(result string, duration time.Duration) {}

// UMA permission flow - noop implementations
func (n *NoopMetrics) RecordTicketRegistered(success bool) {}
func (n *NoopMetrics) RecordTicketExchange(result string)  {}

// Expiry sweep - noop implementations
func (n *NoopMetrics) RecordSweep(
	tokensDeleted, ticketsExpired, grantsDeleted int64,
	duration time.Duration,
) {
}

// Gauge setters - noop implementations
func (n *NoopMetrics) SetActiveTokensCount(tokenType string, count int) {}
func (n *NoopMetrics) SetActiveTicketsCount(count int)                  {}

// Database operations - noop implementations
func (n *NoopMetrics) RecordDatabaseQueryError(operation string) {}
