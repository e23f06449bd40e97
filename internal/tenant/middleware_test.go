package tenant_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/go-chi/chi/v5"

	"github.com/nikhilbhutani/lmscore/internal/auth"
	"github.com/nikhilbhutani/lmscore/internal/models"
	"github.com/nikhilbhutani/lmscore/internal/tenant"
)

type decisions struct{ outcomes []string }

func (d *decisions) RecordDecision(outcome, reason string) {
	d.outcomes = append(d.outcomes, outcome)
}

func newScopedRouter(lookup tenant.StatusLookup, rec tenant.DecisionRecorder, seen *tenant.Scope, failures *[]error) http.Handler {
	onError := func(w http.ResponseWriter, r *http.Request, err error) {
		*failures = append(*failures, err)
		w.WriteHeader(http.StatusForbidden)
	}
	scoper := tenant.NewScoper(tenant.NewGuard(lookup), rec, onError)

	handler := func(w http.ResponseWriter, r *http.Request) {
		s, ok := tenant.ScopeFromContext(r.Context())
		if ok {
			*seen = s
		}
		w.WriteHeader(http.StatusOK)
	}

	r := chi.NewRouter()
	r.With(scoper.Scope).Get("/tenants/{tenantId}/courses", handler)
	r.With(scoper.Scope).Get("/courses", handler)
	return r
}

func serve(h http.Handler, target string, p *auth.Principal) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if p != nil {
		req = req.WithContext(auth.WithPrincipal(req.Context(), p))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestScoperCrossTenantPathDenied(t *testing.T) {
	c := qt.New(t)
	lookup := &fakeLookup{statuses: map[int64]models.TenantStatus{12: models.TenantActive, 13: models.TenantActive}}
	var seen tenant.Scope
	var failures []error
	rec := &decisions{}
	h := newScopedRouter(lookup, rec, &seen, &failures)

	admin := &auth.Principal{ID: 5, Role: models.RoleTenantAdmin, TenantID: int64p(12)}

	resp := serve(h, "/tenants/13/courses", admin)
	c.Assert(resp.Code, qt.Equals, http.StatusForbidden)
	c.Assert(failures, qt.HasLen, 1)
	var forbidden *tenant.ForbiddenError
	c.Assert(failures[0], qt.ErrorAs, &forbidden)
	c.Assert(forbidden.Reason, qt.Equals, tenant.ReasonCrossTenant)
	c.Assert(lookup.calls, qt.Equals, 0)

	resp = serve(h, "/tenants/12/courses", admin)
	c.Assert(resp.Code, qt.Equals, http.StatusOK)
	c.Assert(seen.TenantID, qt.Equals, int64(12))
	c.Assert(rec.outcomes, qt.DeepEquals, []string{"allowed"})
}

func TestScoperQueryParamCannotEscapeTenant(t *testing.T) {
	c := qt.New(t)
	lookup := &fakeLookup{statuses: map[int64]models.TenantStatus{4: models.TenantActive, 5: models.TenantActive}}
	var seen tenant.Scope
	var failures []error
	h := newScopedRouter(lookup, nil, &seen, &failures)

	student := &auth.Principal{ID: 9, Role: models.RoleStudent, TenantID: int64p(4)}
	resp := serve(h, "/courses?tenantId=5", student)
	c.Assert(resp.Code, qt.Equals, http.StatusForbidden)

	resp = serve(h, "/courses", student)
	c.Assert(resp.Code, qt.Equals, http.StatusOK)
	c.Assert(seen.TenantID, qt.Equals, int64(4))
}

func TestScoperSuperAdmin(t *testing.T) {
	c := qt.New(t)
	lookup := &fakeLookup{statuses: map[int64]models.TenantStatus{7: models.TenantActive}}
	var seen tenant.Scope
	var failures []error
	h := newScopedRouter(lookup, nil, &seen, &failures)

	root := &auth.Principal{ID: 1, Role: models.RoleSuperAdmin}

	resp := serve(h, "/courses", root)
	c.Assert(resp.Code, qt.Equals, http.StatusOK)
	c.Assert(seen.Unrestricted, qt.IsTrue)
	c.Assert(lookup.calls, qt.Equals, 0)

	resp = serve(h, "/tenants/7/courses", root)
	c.Assert(resp.Code, qt.Equals, http.StatusOK)
	c.Assert(seen.TenantID, qt.Equals, int64(7))
	c.Assert(lookup.calls, qt.Equals, 1)
}

func TestScoperInactiveAndUnverifiable(t *testing.T) {
	c := qt.New(t)
	var seen tenant.Scope
	var failures []error

	h := newScopedRouter(&fakeLookup{statuses: map[int64]models.TenantStatus{3: models.TenantSuspended}}, nil, &seen, &failures)
	teacher := &auth.Principal{ID: 2, Role: models.RoleTeacher, TenantID: int64p(3)}
	c.Assert(serve(h, "/courses", teacher).Code, qt.Equals, http.StatusForbidden)
	c.Assert(failures[0], qt.ErrorAs, new(*tenant.TenantInactiveError))

	h = newScopedRouter(&fakeLookup{err: errors.New("timeout")}, nil, &seen, &failures)
	c.Assert(serve(h, "/courses", teacher).Code, qt.Equals, http.StatusForbidden)
	c.Assert(failures[1], qt.ErrorAs, new(*tenant.TenantVerificationError))
}

func TestScoperWithoutPrincipal(t *testing.T) {
	c := qt.New(t)
	var seen tenant.Scope
	var failures []error
	h := newScopedRouter(&fakeLookup{}, nil, &seen, &failures)

	serve(h, "/courses", nil)
	c.Assert(failures, qt.HasLen, 1)
	c.Assert(failures[0], qt.ErrorAs, new(*auth.AuthenticationError))
}

func TestScopeContextRoundTrip(t *testing.T) {
	c := qt.New(t)
	_, ok := tenant.ScopeFromContext(context.Background())
	c.Assert(ok, qt.IsFalse)

	ctx := tenant.WithScope(context.Background(), tenant.Scope{TenantID: 3})
	s, ok := tenant.ScopeFromContext(ctx)
	c.Assert(ok, qt.IsTrue)
	c.Assert(s.TenantID, qt.Equals, int64(3))
}
