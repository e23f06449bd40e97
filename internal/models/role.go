package models

import (
	"fmt"
	"time"
)

// Role is the coarse role carried by every principal and stored as the
// natural key of a role row.
type Role string

const (
	RoleSuperAdmin  Role = "SUPER_ADMIN"
	RoleTenantAdmin Role = "TENANT_ADMIN"
	RoleTeacher     Role = "TEACHER"
	RoleStudent     Role = "STUDENT"
)

var roles = map[Role]struct{}{
	RoleSuperAdmin:  {},
	RoleTenantAdmin: {},
	RoleTeacher:     {},
	RoleStudent:     {},
}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := roles[r]; !ok {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// PlatformWide reports whether the role is exempt from tenant scoping.
// SUPER_ADMIN is the only such role.
func (r Role) PlatformWide() bool {
	return r == RoleSuperAdmin
}

// RoleRecord is a row of the roles table.
type RoleRecord struct {
	ID        int64     `json:"id" db:"id"`
	Type      Role      `json:"role_type" db:"role_type"`
	Name      string    `json:"name" db:"name"`
	TenantID  *int64    `json:"tenant_id,omitempty" db:"tenant_id"`
	CreatedBy *int64    `json:"created_by,omitempty" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
