package models

import (
	"time"
)

// SystemUser is a row of the system_users table. Platform administrators
// have a nil TenantID.
type SystemUser struct {
	ID        int64     `json:"id" db:"id"`
	TenantID  *int64    `json:"tenant_id,omitempty" db:"tenant_id"`
	RoleID    int64     `json:"role_id" db:"role_id"`
	Email     string    `json:"email" db:"email"`
	FullName  string    `json:"full_name,omitempty" db:"full_name"`
	CreatedBy *int64    `json:"created_by,omitempty" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
