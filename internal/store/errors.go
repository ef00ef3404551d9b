package store

import "errors"

var (
	// ErrRecordNotFound wraps GORM's not found error for consistency
	ErrRecordNotFound = errors.New("record not found")

	// ErrDuplicateToken is returned by CreateToken when the token hash
	// collides with a live token (unique index violation).
	ErrDuplicateToken = errors.New("token value already exists")

	// ErrCodeAlreadyUsed is returned by ExchangeCodeTokens when the
	// authorization code was already consumed by a concurrent request
	// (0 rows deleted).
	ErrCodeAlreadyUsed = errors.New("authorization code already used")

	// ErrTokenGone is returned by RefreshTokens when the refresh token
	// disappeared between lookup and use: the caller lost a race against
	// a concurrent revoke or rotation.
	ErrTokenGone = errors.New("token no longer exists")

	// Ticket consume failures, distinguished so the service can report
	// consumed vs expired per the UMA error taxonomy.
	ErrTicketNotFound = errors.New("permission ticket not found")
	ErrTicketConsumed = errors.New("permission ticket already consumed")
	ErrTicketExpired  = errors.New("permission ticket expired")
)
