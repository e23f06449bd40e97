package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/nikhilbhutani/lmscore/internal/auth"
	"github.com/nikhilbhutani/lmscore/internal/models"
	"github.com/nikhilbhutani/lmscore/internal/queue"
	"github.com/nikhilbhutani/lmscore/internal/tenant"
)

type decisionLog struct{ entries [][2]string }

func (d *decisionLog) RecordDecision(outcome, reason string) {
	d.entries = append(d.entries, [2]string{outcome, reason})
}

type denialLog struct{ payloads []queue.AccessDeniedPayload }

func (d *denialLog) AccessDenied(_ context.Context, p queue.AccessDeniedPayload) {
	d.payloads = append(d.payloads, p)
}

func int64p(v int64) *int64 { return &v }

func TestAccessErrorsMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		body    map[string]string
		outcome string
		audited bool
	}{{
		name:    "authentication",
		err:     &auth.AuthenticationError{Reason: "credential expired"},
		status:  http.StatusUnauthorized,
		body:    map[string]string{"error": "authentication required"},
		outcome: "unauthenticated",
	}, {
		name:    "invalid tenant id",
		err:     &tenant.InvalidTenantIDError{Source: tenant.SourcePath, Value: "abc"},
		status:  http.StatusBadRequest,
		body:    map[string]string{"error": "invalid tenant id"},
		outcome: "rejected",
	}, {
		name:    "cross tenant",
		err:     &tenant.ForbiddenError{Reason: tenant.ReasonCrossTenant, RequestedTenantID: 13},
		status:  http.StatusForbidden,
		body:    map[string]string{"error": "access denied"},
		outcome: "denied",
		audited: true,
	}, {
		name:    "tenant required",
		err:     &tenant.ForbiddenError{Reason: tenant.ReasonTenantRequired},
		status:  http.StatusForbidden,
		body:    map[string]string{"error": "access denied"},
		outcome: "denied",
		audited: true,
	}, {
		name:    "unknown tenant",
		err:     &tenant.ForbiddenError{Reason: tenant.ReasonUnknownTenant, RequestedTenantID: 404},
		status:  http.StatusForbidden,
		body:    map[string]string{"error": "access denied"},
		outcome: "denied",
		audited: true,
	}, {
		name:    "role",
		err:     auth.ErrRoleNotPermitted,
		status:  http.StatusForbidden,
		body:    map[string]string{"error": "access denied"},
		outcome: "denied",
		audited: true,
	}, {
		name:    "inactive",
		err:     &tenant.TenantInactiveError{TenantID: 12, Status: models.TenantSuspended},
		status:  http.StatusForbidden,
		body:    map[string]string{"error": "tenant account is suspended", "status": "SUSPENDED"},
		outcome: "denied",
		audited: true,
	}, {
		name:    "verification",
		err:     &tenant.TenantVerificationError{TenantID: 12, Err: errors.New("timeout")},
		status:  http.StatusServiceUnavailable,
		body:    map[string]string{"error": "tenant verification unavailable, retry later"},
		outcome: "error",
	}, {
		name:    "unscoped",
		err:     tenant.ErrUnscoped,
		status:  http.StatusBadRequest,
		body:    map[string]string{"error": "tenant id required"},
		outcome: "rejected",
	}, {
		name:   "anything else",
		err:    errors.New("boom"),
		status: http.StatusInternalServerError,
		body:   map[string]string{"error": "internal error"},
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			decisions := &decisionLog{}
			denials := &denialLog{}
			h := NewAccessErrors(slog.New(slog.NewTextHandler(io.Discard, nil)), decisions, denials)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/tenants/13/courses", nil)
			req = req.WithContext(auth.WithPrincipal(req.Context(),
				&auth.Principal{ID: 5, Role: models.RoleTenantAdmin, TenantID: int64p(12)}))
			rec := httptest.NewRecorder()
			h.Handle(rec, req, tt.err)

			c.Assert(rec.Code, qt.Equals, tt.status)
			var body map[string]string
			c.Assert(json.Unmarshal(rec.Body.Bytes(), &body), qt.IsNil)
			c.Assert(body, qt.DeepEquals, tt.body)

			if tt.outcome == "" {
				c.Assert(decisions.entries, qt.HasLen, 0)
			} else {
				c.Assert(decisions.entries, qt.HasLen, 1)
				c.Assert(decisions.entries[0][0], qt.Equals, tt.outcome)
			}
			c.Assert(len(denials.payloads) == 1, qt.Equals, tt.audited)
		})
	}
}

func TestAccessErrorsAuditPayload(t *testing.T) {
	c := qt.New(t)
	denials := &denialLog{}
	h := NewAccessErrors(slog.New(slog.NewTextHandler(io.Discard, nil)), nil, denials)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tenants/13/courses", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	req = req.WithContext(auth.WithPrincipal(req.Context(),
		&auth.Principal{ID: 5, Role: models.RoleTenantAdmin, TenantID: int64p(12)}))
	h.Handle(httptest.NewRecorder(), req, &tenant.ForbiddenError{Reason: tenant.ReasonCrossTenant, RequestedTenantID: 13})

	c.Assert(denials.payloads, qt.HasLen, 1)
	p := denials.payloads[0]
	c.Assert(*p.PrincipalID, qt.Equals, int64(5))
	c.Assert(*p.PrincipalTenantID, qt.Equals, int64(12))
	c.Assert(*p.RequestedTenantID, qt.Equals, int64(13))
	c.Assert(p.Reason, qt.Equals, "cross-tenant access denied")
	c.Assert(p.IPAddress, qt.Equals, "10.1.2.3")
	c.Assert(p.Path, qt.Equals, "/api/v1/tenants/13/courses")
}
