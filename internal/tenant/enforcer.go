package tenant

import (
	"github.com/nikhilbhutani/lmscore/internal/auth"
)

// Scope is the outcome of a successful isolation check. An Unrestricted
// scope is only ever produced for the platform-wide role when no tenant id
// was extracted.
type Scope struct {
	TenantID     int64
	Unrestricted bool
	Principal    *auth.Principal
}

// RequireTenantID is the isolation decision for one request. The
// platform-wide role is exempt. Every other role needs an extracted tenant
// id equal to its own; this comparison is what stops a manipulated path or
// query parameter from reaching another tenant's rows.
//
// It is pure and synchronous: no I/O, no logging, no shared state.
func RequireTenantID(p *auth.Principal, ref Ref) (Scope, error) {
	if p == nil {
		return Scope{}, &auth.AuthenticationError{Reason: "no principal"}
	}

	if p.Role.PlatformWide() {
		if !ref.Present {
			return Scope{Unrestricted: true, Principal: p}, nil
		}
		return Scope{TenantID: ref.ID, Principal: p}, nil
	}

	if !ref.Present {
		return Scope{}, &ForbiddenError{Reason: ReasonTenantRequired}
	}
	if !p.HasTenant(ref.ID) {
		return Scope{}, &ForbiddenError{Reason: ReasonCrossTenant, RequestedTenantID: ref.ID}
	}
	return Scope{TenantID: ref.ID, Principal: p}, nil
}

// Predicate builds the tenant-scoped query predicate for this scope.
func (s Scope) Predicate(filters map[string]any) (Predicate, error) {
	if s.Unrestricted {
		return Predicate{}, ErrUnscoped
	}
	return BuildScopedPredicate(s.TenantID, filters)
}
