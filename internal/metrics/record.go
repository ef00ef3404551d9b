package metrics

import "time"

const (
	resultSuccess = "success"
	resultError   = "error"
)

// RecordTokenIssued records token issuance
func (m *Metrics) RecordTokenIssued(
	tokenType, grantType string,
	generationTime time.Duration,
) {
	m.TokensIssuedTotal.WithLabelValues(tokenType, grantType).Inc()
	m.TokensActive.WithLabelValues(tokenType).Inc()
	m.TokenGenerationDuration.Observe(generationTime.Seconds())
}

// RecordTokenRevoked records token revocation
func (m *Metrics) RecordTokenRevoked(tokenType, reason string) {
	m.TokensRevokedTotal.WithLabelValues(reason).Inc()
	m.TokensActive.WithLabelValues(tokenType).Dec()
}

// RecordTokenRefresh records a token refresh attempt
func (m *Metrics) RecordTokenRefresh(success bool) {
	result := resultSuccess
	if !success {
		result = resultError
	}
	m.TokensRefreshedTotal.WithLabelValues(result).Inc()
}

// RecordIntrospection records an introspection request
func (m *Metrics) RecordIntrospection(result string, duration time.Duration) {
	// result: active, inactive, denied
	m.IntrospectionTotal.WithLabelValues(result).Inc()
	m.IntrospectionDuration.Observe(duration.Seconds())
}

// RecordTicketRegistered records a permission ticket registration
func (m *Metrics) RecordTicketRegistered(success bool) {
	result := resultSuccess
	if !success {
		result = resultError
	}
	m.TicketsRegisteredTotal.WithLabelValues(result).Inc()

	if success {
		m.TicketsActive.Inc()
	}
}

// RecordTicketExchange records a ticket exchange attempt
func (m *Metrics) RecordTicketExchange(result string) {
	// result: success, consumed, expired, invalid
	m.TicketExchangeTotal.WithLabelValues(result).Inc()

	if result == resultSuccess || result == "expired" {
		m.TicketsActive.Dec()
	}
}

// RecordSweep records the outcome of one expiry sweep pass
func (m *Metrics) RecordSweep(
	tokensDeleted, ticketsExpired, grantsDeleted int64,
	duration time.Duration,
) {
	m.SweepRunsTotal.Inc()
	m.SweepTokensDeletedTotal.Add(float64(tokensDeleted))
	m.SweepTicketsExpiredTotal.Add(float64(ticketsExpired))
	m.SweepGrantsDeletedTotal.Add(float64(grantsDeleted))
	m.SweepDuration.Observe(duration.Seconds())
}

// SetActiveTokensCount sets the current count of live tokens (for periodic updates)
func (m *Metrics) SetActiveTokensCount(tokenType string, count int) {
	m.TokensActive.WithLabelValues(tokenType).Set(float64(count))
}

// SetActiveTicketsCount sets the current count of issued tickets (for periodic updates)
func (m *Metrics) SetActiveTicketsCount(count int) {
	m.TicketsActive.Set(float64(count))
}

// RecordDatabaseQueryError records a database query error during metric collection
func (m *Metrics) RecordDatabaseQueryError(operation string) {
	m.DatabaseQueryErrorsTotal.WithLabelValues(operation).Inc()
}
