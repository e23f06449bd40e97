package tenant_test

import (
	"context"
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/nikhilbhutani/lmscore/internal/models"
	"github.com/nikhilbhutani/lmscore/internal/tenant"
)

type fakeLookup struct {
	statuses map[int64]models.TenantStatus
	err      error
	calls    int
}

func (f *fakeLookup) TenantStatus(_ context.Context, id int64) (models.TenantStatus, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	s, ok := f.statuses[id]
	if !ok {
		return "", tenant.ErrTenantNotFound
	}
	return s, nil
}

func TestVerifyActiveTenantStatuses(t *testing.T) {
	for _, status := range models.TenantStatuses {
		t.Run(string(status), func(t *testing.T) {
			c := qt.New(t)
			g := tenant.NewGuard(&fakeLookup{statuses: map[int64]models.TenantStatus{1: status}})

			err := g.VerifyActiveTenant(context.Background(), 1)
			if status.Operational() {
				c.Assert(err, qt.IsNil)
				return
			}
			var inactive *tenant.TenantInactiveError
			c.Assert(err, qt.ErrorAs, &inactive)
			c.Assert(inactive.Status, qt.Equals, status)
			c.Assert(inactive.TenantID, qt.Equals, int64(1))
		})
	}
}

func TestVerifyActiveTenantOperationalSet(t *testing.T) {
	c := qt.New(t)
	var operational []models.TenantStatus
	for _, s := range models.TenantStatuses {
		if s.Operational() {
			operational = append(operational, s)
		}
	}
	c.Assert(operational, qt.DeepEquals, []models.TenantStatus{models.TenantActive, models.TenantTrial})
}

func TestVerifyActiveTenantLookupFailure(t *testing.T) {
	c := qt.New(t)
	cause := errors.New("connection refused")
	g := tenant.NewGuard(&fakeLookup{err: cause})

	err := g.VerifyActiveTenant(context.Background(), 8)
	var verr *tenant.TenantVerificationError
	c.Assert(err, qt.ErrorAs, &verr)
	c.Assert(err, qt.ErrorIs, cause)
	c.Assert(err, qt.Not(qt.ErrorAs), new(*tenant.TenantInactiveError))
}

func TestVerifyActiveTenantUnknownTenant(t *testing.T) {
	c := qt.New(t)
	g := tenant.NewGuard(&fakeLookup{})

	err := g.VerifyActiveTenant(context.Background(), 404)
	var forbidden *tenant.ForbiddenError
	c.Assert(err, qt.ErrorAs, &forbidden)
	c.Assert(forbidden.Reason, qt.Equals, tenant.ReasonUnknownTenant)
}

func TestVerifyActiveTenantUnrecognizedStatus(t *testing.T) {
	c := qt.New(t)
	g := tenant.NewGuard(&fakeLookup{statuses: map[int64]models.TenantStatus{2: "ARCHIVED"}})

	err := g.VerifyActiveTenant(context.Background(), 2)
	c.Assert(err, qt.ErrorAs, new(*tenant.TenantVerificationError))
}
