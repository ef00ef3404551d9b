package models

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Client type constants
const (
	ClientTypeConfidential = "confidential"
	ClientTypePublic       = "public"
)

// Client is a registered OAuth client. The engine references clients by
// ClientID only; registration management lives at the REST boundary.
type Client struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	ClientID     string `gorm:"uniqueIndex;size:36;not null"`
	ClientSecret string // bcrypt hash; empty for public clients
	ClientName   string
	ClientType   string `gorm:"not null;default:'confidential'"`

	Scopes     string `gorm:"not null"` // space-separated registered scopes
	GrantTypes string `gorm:"not null"` // space-separated allowed grant types

	IsActive  bool `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateSecret performs bcrypt comparison of the stored hashed client secret.
func (c *Client) ValidateSecret(plain string) bool {
	if c.ClientSecret == "" || plain == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(c.ClientSecret), []byte(plain)) == nil
}

// AllowsGrantType reports whether gt is in the client's registered grant types.
func (c *Client) AllowsGrantType(gt GrantType) bool {
	for _, g := range strings.Fields(c.GrantTypes) {
		if g == string(gt) {
			return true
		}
	}
	return false
}

// AllowsScopes reports whether every requested scope is registered for the client.
func (c *Client) AllowsScopes(requested string) bool {
	allowed := make(map[string]bool)
	for _, sc := range strings.Fields(c.Scopes) {
		allowed[sc] = true
	}
	for _, sc := range strings.Fields(requested) {
		if !allowed[sc] {
			return false
		}
	}
	return true
}

func (c *Client) IsPublic() bool {
	return c.ClientType == ClientTypePublic
}

func (Client) TableName() string {
	return "oauth_clients"
}
