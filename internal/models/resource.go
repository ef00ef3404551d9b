package models

import (
	"strings"
	"time"
)

// UmaResource is a protected resource registered by a Resource Server.
// Permission requests are validated against this registry before a ticket
// is issued.
type UmaResource struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	ResourceID string `gorm:"uniqueIndex;size:64;not null"`
	Name       string
	Scopes     string `gorm:"not null"` // space-separated registered scope ids

	// OwnerClientID restricts protection-API operations on this resource to
	// the client that registered it.
	OwnerClientID string `gorm:"index"`

	CreatedAt time.Time
}

// HasScopes reports whether every requested scope id is registered on the resource.
func (r *UmaResource) HasScopes(requested []string) bool {
	registered := make(map[string]bool)
	for _, sc := range strings.Fields(r.Scopes) {
		registered[sc] = true
	}
	for _, sc := range requested {
		if !registered[sc] {
			return false
		}
	}
	return true
}

func (UmaResource) TableName() string {
	return "uma_resources"
}
