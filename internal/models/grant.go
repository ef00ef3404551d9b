package models

import (
	"strings"
	"time"
)

// GrantType identifies the OAuth 2.0 flow that produced a grant.
type GrantType string

const (
	GrantTypeAuthorizationCode GrantType = "authorization_code"
	GrantTypeImplicit          GrantType = "implicit"
	GrantTypeRefreshToken      GrantType = "refresh_token"
	GrantTypeClientCredentials GrantType = "client_credentials"
	GrantTypeCIBA              GrantType = "urn:openid:params:grant-type:ciba"
	GrantTypeDeviceCode        GrantType = "urn:ietf:params:oauth:grant-type:device_code"
	GrantTypeUmaTicket         GrantType = "urn:ietf:params:oauth:grant-type:uma-ticket"
)

// AuthorizationGrant ties one authorization event to its issued tokens.
// Tokens reference the grant by GrantID; revoking a grant cascades over
// every token sharing that GrantID.
type AuthorizationGrant struct {
	GrantID   string    `gorm:"primaryKey;size:36"`
	GrantType GrantType `gorm:"not null;index"`

	ClientID string `gorm:"not null;index"`
	UserID   string `gorm:"index"` // Empty for client_credentials grants

	Scopes    string `gorm:"not null"` // space-separated
	AcrValues string
	AmrValues string

	AuthenticationTime time.Time

	// Nonce from the authorize request, echoed into every ID token minted
	// under this grant
	Nonce string

	// JwtRequest carries a PAR/JAR request object through to introspection;
	// the engine treats it as opaque.
	JwtRequest string

	// TicketID links a uma_ticket grant back to the consumed permission ticket
	TicketID string `gorm:"index"`

	// Attributes carries the permission ticket's free-form key/value pairs
	// onto the RPT grant
	Attributes TicketAttributes `gorm:"type:text"`

	CreatedAt time.Time
}

// CanRefresh reports whether this grant type may carry a refresh token.
// Implicit and client_credentials grants never refresh (RFC 6749 §4.2.2, §4.4.3).
func (g *AuthorizationGrant) CanRefresh() bool {
	switch g.GrantType {
	case GrantTypeAuthorizationCode, GrantTypeDeviceCode, GrantTypeCIBA, GrantTypeUmaTicket:
		return true
	default:
		return false
	}
}

// HasScope reports whether the grant's scope set contains s.
func (g *AuthorizationGrant) HasScope(s string) bool {
	for _, sc := range strings.Fields(g.Scopes) {
		if sc == s {
			return true
		}
	}
	return false
}

func (AuthorizationGrant) TableName() string {
	return "authorization_grants"
}
