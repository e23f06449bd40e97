package models

import (
	"time"
)

type TenantStatus string

const (
	TenantActive    TenantStatus = "ACTIVE"
	TenantTrial     TenantStatus = "TRIAL"
	TenantSuspended TenantStatus = "SUSPENDED"
	TenantExpired   TenantStatus = "EXPIRED"
	TenantCancelled TenantStatus = "CANCELLED"
)

// TenantStatuses lists every status a tenant row may carry.
var TenantStatuses = []TenantStatus{
	TenantActive,
	TenantTrial,
	TenantSuspended,
	TenantExpired,
	TenantCancelled,
}

// Operational reports whether requests against a tenant in this status may proceed.
func (s TenantStatus) Operational() bool {
	return s == TenantActive || s == TenantTrial
}

func (s TenantStatus) Valid() bool {
	for _, v := range TenantStatuses {
		if v == s {
			return true
		}
	}
	return false
}

type Tenant struct {
	ID        int64        `json:"id" db:"id"`
	Name      string       `json:"name" db:"name"`
	Status    TenantStatus `json:"status" db:"status"`
	IsDeleted bool         `json:"is_deleted" db:"is_deleted"`
	CreatedBy *int64       `json:"created_by,omitempty" db:"created_by"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
}
