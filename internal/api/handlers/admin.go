package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/nikhilbhutani/lmscore/internal/audit"
	"github.com/nikhilbhutani/lmscore/internal/auth"
	"github.com/nikhilbhutani/lmscore/internal/models"
	"github.com/nikhilbhutani/lmscore/internal/tenant"
)

type AuditLister interface {
	List(ctx context.Context, pred tenant.Predicate, q audit.AuditQuery) ([]models.AuditLog, error)
}

type AdminHandler struct {
	auditSvc AuditLister
	onError  auth.ErrorHandler
}

func NewAdminHandler(auditSvc AuditLister, onError auth.ErrorHandler) *AdminHandler {
	return &AdminHandler{auditSvc: auditSvc, onError: onError}
}

func (h *AdminHandler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	q := audit.AuditQuery{
		Action: r.URL.Query().Get("action"),
	}

	q.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	q.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if q.Limit <= 0 {
		q.Limit = 50
	}

	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err == nil {
			q.StartDate = &t
		}
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err == nil {
			q.EndDate = &t
		}
	}

	pred, err := scopedPredicate(r, nil)
	if err != nil {
		h.onError(w, r, err)
		return
	}

	logs, err := h.auditSvc.List(r.Context(), pred, q)
	if err != nil {
		h.onError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"audit_logs": logs, "count": len(logs)})
}
