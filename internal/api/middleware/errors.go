package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nikhilbhutani/lmscore/internal/auth"
	"github.com/nikhilbhutani/lmscore/internal/queue"
	"github.com/nikhilbhutani/lmscore/internal/tenant"
)

type DecisionRecorder interface {
	RecordDecision(outcome, reason string)
}

type DenialAuditor interface {
	AccessDenied(ctx context.Context, p queue.AccessDeniedPayload)
}

// AccessErrors renders the authentication and isolation error taxonomy.
// Clients get a fixed message per error kind; the detailed reason only goes
// to logs, metrics and the audit trail.
type AccessErrors struct {
	logger   *slog.Logger
	recorder DecisionRecorder
	auditor  DenialAuditor
}

func NewAccessErrors(logger *slog.Logger, rec DecisionRecorder, auditor DenialAuditor) *AccessErrors {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccessErrors{logger: logger, recorder: rec, auditor: auditor}
}

// Handle implements auth.ErrorHandler.
func (e *AccessErrors) Handle(w http.ResponseWriter, r *http.Request, err error) {
	var (
		authErr     *auth.AuthenticationError
		invalidErr  *tenant.InvalidTenantIDError
		forbidden   *tenant.ForbiddenError
		inactiveErr *tenant.TenantInactiveError
		verifyErr   *tenant.TenantVerificationError
	)

	switch {
	case errors.As(err, &authErr):
		e.log(r, slog.LevelWarn, "authentication failed", err, "reason", authErr.Reason)
		e.record("unauthenticated", authErr.Reason)
		WriteError(w, http.StatusUnauthorized, "authentication required")

	case errors.As(err, &invalidErr):
		e.log(r, slog.LevelWarn, "invalid tenant id", err, "source", invalidErr.Source)
		e.record("rejected", "invalid tenant id")
		WriteError(w, http.StatusBadRequest, "invalid tenant id")

	case errors.Is(err, tenant.ErrUnscoped):
		e.record("rejected", "unscoped")
		WriteError(w, http.StatusBadRequest, "tenant id required")

	case errors.As(err, &forbidden):
		reason := forbidden.Reason.String()
		e.deny(r, err, reason, forbidden.RequestedTenantID)
		WriteError(w, http.StatusForbidden, "access denied")

	case errors.Is(err, auth.ErrRoleNotPermitted):
		e.deny(r, err, "role not permitted", 0)
		WriteError(w, http.StatusForbidden, "access denied")

	case errors.As(err, &inactiveErr):
		e.deny(r, err, "tenant inactive", inactiveErr.TenantID)
		writeJSON(w, http.StatusForbidden, map[string]string{
			"error":  "tenant account is " + strings.ToLower(string(inactiveErr.Status)),
			"status": string(inactiveErr.Status),
		})

	case errors.As(err, &verifyErr):
		e.log(r, slog.LevelError, "tenant verification failed", err, "tenant_id", verifyErr.TenantID)
		e.record("error", "tenant verification")
		WriteError(w, http.StatusServiceUnavailable, "tenant verification unavailable, retry later")

	default:
		e.log(r, slog.LevelError, "request failed", err)
		WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

func (e *AccessErrors) deny(r *http.Request, err error, reason string, requested int64) {
	p := auth.PrincipalFromContext(r.Context())
	attrs := []any{"reason", reason}
	if requested > 0 {
		attrs = append(attrs, "requested_tenant_id", requested)
	}
	e.log(r, slog.LevelWarn, "access denied", err, attrs...)
	e.record("denied", reason)

	if e.auditor == nil {
		return
	}
	payload := queue.AccessDeniedPayload{
		Error:      err.Error(),
		Reason:     reason,
		Method:     r.Method,
		Path:       r.URL.Path,
		RequestID:  chimiddleware.GetReqID(r.Context()),
		IPAddress:  clientIP(r),
		OccurredAt: time.Now(),
	}
	if p != nil {
		id := p.ID
		payload.PrincipalID = &id
		payload.PrincipalTenantID = p.TenantID
	}
	if requested > 0 {
		payload.RequestedTenantID = &requested
	}
	e.auditor.AccessDenied(r.Context(), payload)
}

func (e *AccessErrors) log(r *http.Request, level slog.Level, msg string, err error, attrs ...any) {
	attrs = append(attrs,
		"error", err,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", chimiddleware.GetReqID(r.Context()),
	)
	if p := auth.PrincipalFromContext(r.Context()); p != nil {
		attrs = append(attrs, "principal_id", p.ID, "role", p.Role)
	}
	e.logger.Log(r.Context(), level, msg, attrs...)
}

func (e *AccessErrors) record(outcome, reason string) {
	if e.recorder != nil {
		e.recorder.RecordDecision(outcome, reason)
	}
}

func WriteError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
