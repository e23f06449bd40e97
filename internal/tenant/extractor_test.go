package tenant_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/go-chi/chi/v5"

	"github.com/nikhilbhutani/lmscore/internal/auth"
	"github.com/nikhilbhutani/lmscore/internal/models"
	"github.com/nikhilbhutani/lmscore/internal/tenant"
)

func int64p(v int64) *int64 { return &v }

func newRequest(target string, pathTenant *string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, target, nil)
	if pathTenant == nil {
		return r
	}
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(tenant.PathParam, *pathTenant)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func strp(s string) *string { return &s }

func TestExtractTenantID(t *testing.T) {
	teacher := &auth.Principal{ID: 1, Role: models.RoleTeacher, TenantID: int64p(9)}
	superAdmin := &auth.Principal{ID: 2, Role: models.RoleSuperAdmin}

	tests := []struct {
		name      string
		target    string
		path      *string
		principal *auth.Principal
		want      tenant.Ref
	}{{
		name:      "path wins over query and principal",
		target:    "/tenants/3/courses?tenantId=5",
		path:      strp("3"),
		principal: teacher,
		want:      tenant.RefOf(3, tenant.SourcePath),
	}, {
		name:      "query wins over principal",
		target:    "/courses?tenantId=5",
		principal: teacher,
		want:      tenant.RefOf(5, tenant.SourceQuery),
	}, {
		name:      "principal fallback",
		target:    "/courses",
		principal: teacher,
		want:      tenant.RefOf(9, tenant.SourcePrincipal),
	}, {
		name:      "absent for platform principal",
		target:    "/tenants",
		principal: superAdmin,
		want:      tenant.Absent(),
	}, {
		name:   "absent without principal",
		target: "/courses",
		want:   tenant.Absent(),
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			ref, err := tenant.ExtractTenantID(newRequest(tt.target, tt.path), tt.principal)
			c.Assert(err, qt.IsNil)
			c.Assert(ref, qt.Equals, tt.want)
		})
	}
}

func TestExtractTenantIDMalformedFailsFast(t *testing.T) {
	teacher := &auth.Principal{ID: 1, Role: models.RoleTeacher, TenantID: int64p(9)}

	tests := []struct {
		name   string
		target string
		path   *string
		source tenant.Source
	}{
		{"malformed path ignores valid query", "/tenants/abc/courses?tenantId=5", strp("abc"), tenant.SourcePath},
		{"zero path", "/tenants/0/courses", strp("0"), tenant.SourcePath},
		{"negative path", "/tenants/-3/courses", strp("-3"), tenant.SourcePath},
		{"signed path", "/tenants/+3/courses", strp("+3"), tenant.SourcePath},
		{"empty query", "/courses?tenantId=", nil, tenant.SourceQuery},
		{"fractional query", "/courses?tenantId=1.5", nil, tenant.SourceQuery},
		{"overflowing query", "/courses?tenantId=99999999999999999999", nil, tenant.SourceQuery},
		{"repeated query", "/courses?tenantId=9&tenantId=10", nil, tenant.SourceQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			_, err := tenant.ExtractTenantID(newRequest(tt.target, tt.path), teacher)
			var invalid *tenant.InvalidTenantIDError
			c.Assert(err, qt.ErrorAs, &invalid)
			c.Assert(invalid.Source, qt.Equals, tt.source)
		})
	}
}
