package auth

import (
	"context"
	"fmt"

	"github.com/nikhilbhutani/lmscore/internal/models"
)

// Principal is the authenticated identity attached to one request or one
// realtime connection. It is built fresh from a verified credential and
// discarded afterwards.
type Principal struct {
	ID       int64       `json:"id"`
	Role     models.Role `json:"role"`
	TenantID *int64      `json:"tenant_id"`
}

// Validate checks the structural invariants every principal must satisfy.
func (p *Principal) Validate() error {
	if p.ID <= 0 {
		return fmt.Errorf("principal id must be positive, got %d", p.ID)
	}
	if _, err := models.ParseRole(string(p.Role)); err != nil {
		return err
	}
	if p.TenantID == nil {
		if !p.Role.PlatformWide() {
			return fmt.Errorf("role %s requires a tenant id", p.Role)
		}
		return nil
	}
	if *p.TenantID <= 0 {
		return fmt.Errorf("tenant id must be positive, got %d", *p.TenantID)
	}
	return nil
}

// HasTenant reports whether the principal is bound to tenant id.
func (p *Principal) HasTenant(id int64) bool {
	return p.TenantID != nil && *p.TenantID == id
}

type ctxKey string

const principalKey ctxKey = "principal"

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}
