package models

import (
	"time"
)

// TokenType tags one issued credential. A single tagged struct replaces the
// per-kind subclassing seen in most AS implementations; behaviour differs only
// in lifetime and lookup rules, which the services own.
type TokenType string

const (
	TokenTypeAuthorizationCode  TokenType = "authorization_code"
	TokenTypeAccessToken        TokenType = "access_token"
	TokenTypeRefreshToken       TokenType = "refresh_token"
	TokenTypeIDToken            TokenType = "id_token"
	TokenTypeRegistrationAccess TokenType = "registration_access_token"
)

// Token is one issued credential. The opaque wire value is never persisted;
// only its SHA-256 hash is stored, and the unique index on the hash is what
// enforces code uniqueness across the whole token space.
type Token struct {
	ID        string    `gorm:"primaryKey;size:36"`
	TokenHash string    `gorm:"uniqueIndex;not null"`
	RawToken  string    `gorm:"-"` // In-memory only; handed back to the caller once
	TokenType TokenType `gorm:"not null;index"`

	// All tokens of one authorization event share a GrantID
	GrantID  string `gorm:"not null;index"`
	ClientID string `gorm:"not null;index"`
	UserID   string `gorm:"index"` // Empty for client_credentials grants

	Scopes string `gorm:"not null"` // space-separated

	ExpiresAt  time.Time `gorm:"not null;index"`
	CreatedAt  time.Time
	LastUsedAt *time.Time `gorm:"index"` // Refresh tokens: updated on every exchange

	// Cached marks tokens mirrored into the hot lookup cache
	Cached bool `gorm:"not null;default:false"`
}

func (t *Token) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// IsValid reports whether the token is still within its lifetime.
// Pure wall-clock check; storage state (revocation) is a lookup concern.
func (t *Token) IsValid() bool {
	return time.Now().Before(t.ExpiresAt)
}

func (Token) TableName() string {
	return "tokens"
}
