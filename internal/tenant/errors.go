package tenant

import (
	"errors"
	"fmt"

	"github.com/nikhilbhutani/lmscore/internal/models"
)

// ErrTenantNotFound is returned by a StatusLookup when the tenant does not
// exist or has been soft-deleted.
var ErrTenantNotFound = errors.New("tenant not found")

// InvalidTenantIDError reports a tenant id source that was present but did
// not parse as a positive integer.
type InvalidTenantIDError struct {
	Source Source
	Value  string
}

func (e *InvalidTenantIDError) Error() string {
	return fmt.Sprintf("invalid tenant id %q in %s", e.Value, e.Source)
}

// ForbiddenReason distinguishes why access was denied. It is meant for logs,
// metrics and audit only; clients see one generic message.
type ForbiddenReason int

const (
	ReasonTenantRequired ForbiddenReason = iota + 1
	ReasonCrossTenant
	ReasonUnknownTenant
)

func (r ForbiddenReason) String() string {
	switch r {
	case ReasonTenantRequired:
		return "tenant id required"
	case ReasonCrossTenant:
		return "cross-tenant access denied"
	case ReasonUnknownTenant:
		return "unknown tenant"
	default:
		return "forbidden"
	}
}

type ForbiddenError struct {
	Reason ForbiddenReason
	// RequestedTenantID is the tenant the caller asked for, zero if none.
	RequestedTenantID int64
}

func (e *ForbiddenError) Error() string {
	return "forbidden: " + e.Reason.String()
}

// TenantInactiveError reports a tenant that exists but is not operational.
type TenantInactiveError struct {
	TenantID int64
	Status   models.TenantStatus
}

func (e *TenantInactiveError) Error() string {
	return fmt.Sprintf("tenant %d is not operational: %s", e.TenantID, e.Status)
}

// TenantVerificationError reports that the tenant status could not be
// determined. It is distinct from TenantInactiveError.
type TenantVerificationError struct {
	TenantID int64
	Err      error
}

func (e *TenantVerificationError) Error() string {
	return fmt.Sprintf("verify tenant %d: %v", e.TenantID, e.Err)
}

func (e *TenantVerificationError) Unwrap() error { return e.Err }
