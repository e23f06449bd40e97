package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/nikhilbhutani/lmscore/internal/auth"
	"github.com/nikhilbhutani/lmscore/internal/models"
	"github.com/nikhilbhutani/lmscore/internal/tenant"
)

type TenantStore interface {
	List(ctx context.Context) ([]models.Tenant, error)
	GetByID(ctx context.Context, id int64) (*models.Tenant, error)
}

type TenantHandler struct {
	store   TenantStore
	onError auth.ErrorHandler
}

func NewTenantHandler(store TenantStore, onError auth.ErrorHandler) *TenantHandler {
	return &TenantHandler{store: store, onError: onError}
}

// List is the platform-wide tenant listing. The route is restricted to the
// platform role.
func (h *TenantHandler) List(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.store.List(r.Context())
	if err != nil {
		h.onError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tenants": tenants, "count": len(tenants)})
}

func (h *TenantHandler) Get(w http.ResponseWriter, r *http.Request) {
	scope, ok := tenant.ScopeFromContext(r.Context())
	if !ok || scope.Unrestricted {
		h.onError(w, r, tenant.ErrUnscoped)
		return
	}
	t, err := h.store.GetByID(r.Context(), scope.TenantID)
	if errors.Is(err, tenant.ErrTenantNotFound) {
		h.onError(w, r, &tenant.ForbiddenError{Reason: tenant.ReasonUnknownTenant, RequestedTenantID: scope.TenantID})
		return
	}
	if err != nil {
		h.onError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}
