package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// TicketStatus is the UMA permission ticket state. Tickets move
// issued -> consumed (exchange) or issued -> expired (sweep); both terminal.
type TicketStatus string

const (
	TicketStatusIssued   TicketStatus = "issued"
	TicketStatusConsumed TicketStatus = "consumed"
	TicketStatusExpired  TicketStatus = "expired"
)

// TicketAttributes is a free-form key/value map registered with the
// permission request and carried through to the RPT grant.
type TicketAttributes map[string]string

// Value implements driver.Valuer for database storage
func (a TicketAttributes) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner for database retrieval
func (a *TicketAttributes) Scan(value any) error {
	if value == nil {
		*a = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return fmt.Errorf("failed to scan TicketAttributes: unsupported type %T", value)
		}
	}
	return json.Unmarshal(bytes, a)
}

// UmaPermissionTicket is a pending permission request registered by a
// Resource Server. Identity is defined solely by the Ticket string.
type UmaPermissionTicket struct {
	Ticket string `gorm:"primaryKey"` // opaque, unguessable

	ResourceID string `gorm:"not null;index"`
	ScopeIDs   string `gorm:"not null"` // space-separated

	Status TicketStatus `gorm:"not null;default:'issued';index"`

	// ConfigurationCode references the claims-gathering configuration used
	// when the ticket was registered; opaque to the engine.
	ConfigurationCode string

	Attributes TicketAttributes `gorm:"type:text"`

	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time

	// Deletable drops to false on consume so the sweep never removes a
	// consumed ticket while its RPT grant is alive.
	Deletable bool `gorm:"not null;default:true"`

	// GrantID is set when the ticket is consumed into an RPT grant
	GrantID string `gorm:"index"`
}

func (t *UmaPermissionTicket) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// TTLSeconds derives the remaining lifetime from ExpiresAt. Recomputed on
// every read; ExpiresAt itself is never mutated.
func (t *UmaPermissionTicket) TTLSeconds() int {
	ttl := int(time.Until(t.ExpiresAt).Seconds())
	if ttl < 0 {
		return 0
	}
	return ttl
}

func (UmaPermissionTicket) TableName() string {
	return "uma_permission_tickets"
}
