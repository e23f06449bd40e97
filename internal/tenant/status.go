package tenant

import (
	"context"
	"errors"
	"fmt"

	"github.com/nikhilbhutani/lmscore/internal/models"
)

// StatusLookup reports a tenant's status. Implementations return
// ErrTenantNotFound for missing or soft-deleted tenants.
type StatusLookup interface {
	TenantStatus(ctx context.Context, tenantID int64) (models.TenantStatus, error)
}

type Guard struct {
	lookup StatusLookup
}

func NewGuard(lookup StatusLookup) *Guard {
	return &Guard{lookup: lookup}
}

// VerifyActiveTenant passes for ACTIVE and TRIAL tenants only.
func (g *Guard) VerifyActiveTenant(ctx context.Context, tenantID int64) error {
	status, err := g.lookup.TenantStatus(ctx, tenantID)
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			return &ForbiddenError{Reason: ReasonUnknownTenant, RequestedTenantID: tenantID}
		}
		return &TenantVerificationError{TenantID: tenantID, Err: err}
	}
	if !status.Valid() {
		return &TenantVerificationError{TenantID: tenantID, Err: fmt.Errorf("unrecognized status %q", status)}
	}
	if !status.Operational() {
		return &TenantInactiveError{TenantID: tenantID, Status: status}
	}
	return nil
}
