package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents the type of audit event
type EventType string

const (
	// Grant lifecycle events
	EventGrantCreated               EventType = "GRANT_CREATED"
	EventAuthorizationCodeIssued    EventType = "AUTHORIZATION_CODE_ISSUED"
	EventAuthorizationCodeExchanged EventType = "AUTHORIZATION_CODE_EXCHANGED"
	EventAccessTokenIssued          EventType = "ACCESS_TOKEN_ISSUED"
	EventRefreshTokenIssued         EventType = "REFRESH_TOKEN_ISSUED"
	EventIDTokenIssued              EventType = "ID_TOKEN_ISSUED"
	EventTokenRefreshed             EventType = "TOKEN_REFRESHED"
	EventGrantRevoked               EventType = "GRANT_REVOKED"
	EventTokenIntrospected          EventType = "TOKEN_INTROSPECTED"

	// UMA events
	EventPermissionTicketIssued   EventType = "PERMISSION_TICKET_ISSUED"
	EventPermissionTicketConsumed EventType = "PERMISSION_TICKET_CONSUMED"
	EventRptIssued                EventType = "RPT_ISSUED"

	// Client registration events
	EventClientRegistered EventType = "CLIENT_REGISTERED"

	// Maintenance events
	EventExpirySweep EventType = "EXPIRY_SWEEP"
)

// EventSeverity represents the severity level of an audit event
type EventSeverity string

const (
	SeverityInfo     EventSeverity = "INFO"
	SeverityWarning  EventSeverity = "WARNING"
	SeverityError    EventSeverity = "ERROR"
	SeverityCritical EventSeverity = "CRITICAL"
)

// ResourceType represents the type of resource being operated on
type ResourceType string

const (
	ResourceGrant    ResourceType = "GRANT"
	ResourceToken    ResourceType = "TOKEN"
	ResourceTicket   ResourceType = "TICKET"
	ResourceClient   ResourceType = "CLIENT"
	ResourceUmaScope ResourceType = "UMA_RESOURCE"
)

// AuditDetails stores additional event-specific information as JSON
type AuditDetails map[string]any

// Value implements driver.Valuer for database storage
func (d AuditDetails) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner for database retrieval
func (d *AuditDetails) Scan(value any) error {
	if value == nil {
		*d = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return fmt.Errorf("failed to scan AuditDetails: unsupported type %T", value)
		}
	}
	return json.Unmarshal(bytes, d)
}

// AuditLog records one security-relevant event
type AuditLog struct {
	ID        string    `gorm:"primaryKey;size:36"`
	EventType EventType `gorm:"not null;index"`
	EventTime time.Time `gorm:"not null;index"`

	Severity EventSeverity `gorm:"not null;default:'INFO'"`

	ActorClientID string `gorm:"index"`
	ActorUserID   string `gorm:"index"`

	ResourceType ResourceType `gorm:"index"`
	ResourceID   string       `gorm:"index"`

	Action       string
	Details      AuditDetails `gorm:"type:text"`
	Success      bool         `gorm:"not null;index"`
	ErrorMessage string

	CreatedAt time.Time
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
