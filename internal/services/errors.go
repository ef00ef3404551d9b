package services

import "errors"

// Service-level errors. Handlers map these onto RFC 6749 error codes with
// errors.Is; the services never shape HTTP responses themselves.
var (
	// ErrInvalidRequest indicates a malformed or incomplete request
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidClient indicates unknown or failed client authentication
	ErrInvalidClient = errors.New("invalid client")

	// ErrInvalidGrant indicates an unknown, expired, consumed, or
	// wrong-client code, refresh token, or grant
	ErrInvalidGrant = errors.New("invalid grant")

	// ErrUnauthorizedGrantType indicates the client is not registered for
	// the requested grant type
	ErrUnauthorizedGrantType = errors.New("unauthorized grant type")

	// ErrInvalidScope indicates a scope outside the granted or registered set
	ErrInvalidScope = errors.New("invalid scope")

	// ErrAccessDenied indicates the caller lacks the privilege for the
	// operation (introspection scope, revocation policy)
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidTicket indicates an unknown or already consumed permission ticket
	ErrInvalidTicket = errors.New("invalid ticket")

	// ErrTicketExpired indicates the permission ticket lapsed before exchange
	ErrTicketExpired = errors.New("ticket expired")

	// ErrInvalidResource indicates a permission request naming an unknown
	// resource or unregistered scopes
	ErrInvalidResource = errors.New("invalid resource")
)
