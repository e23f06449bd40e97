package models

import (
	"encoding/json"
	"time"
)

type AuditLog struct {
	ID           int64           `json:"id" db:"id"`
	TenantID     *int64          `json:"tenant_id,omitempty" db:"tenant_id"`
	PrincipalID  *int64          `json:"principal_id,omitempty" db:"principal_id"`
	Action       string          `json:"action" db:"action"`
	ResourceType string          `json:"resource_type,omitempty" db:"resource_type"`
	Details      json.RawMessage `json:"details" db:"details"`
	IPAddress    string          `json:"ip_address,omitempty" db:"ip_address"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}
