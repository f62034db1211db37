package models

import (
	"encoding/json"
	"time"
)

// AuditLog records one mutating API request.
type AuditLog struct {
	ID         int64           `json:"id" db:"id"`
	UserID     *int64          `json:"userId,omitempty" db:"user_id"`
	Action     string          `json:"action" db:"action"`
	EntityType string          `json:"entityType" db:"entity_type"`
	EntityID   *string         `json:"entityId,omitempty" db:"entity_id"`
	NewValues  json.RawMessage `json:"newValues,omitempty" db:"new_values"`
	IPAddress  string          `json:"ipAddress" db:"ip_address"`
	CreatedAt  time.Time       `json:"createdAt" db:"created_at"`

	UserName *string `json:"userName,omitempty"`
}

// AuditFilters narrows the audit listing. Action matches as a
// case-insensitive substring.
type AuditFilters struct {
	UserID     *int64
	EntityType string
	Action     string
	From       *time.Time
	To         *time.Time
	Page       int
	Limit      int
}
